package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	pngSquareSize = 64
	pngMargin     = 28
	pngHeader     = 48
	pngPanelInset = 6
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	highlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 160}
	backgroundColor = color.RGBA{22, 24, 34, 255}
	panelColor      = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	panelTextColor  = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	labelColor      = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// PNGSize is the pixel size of images produced by PNG.
func PNGSize() image.Point {
	side := pngSquareSize*8 + pngMargin*2
	return image.Pt(side, side+pngHeader)
}

// boardOrigin is the top-left pixel of rank 0, file 0.
func boardOrigin() image.Point {
	return image.Pt(pngMargin, pngHeader+pngMargin)
}

// PNG draws v as an image: checkerboard, highlight overlays, pieces, labels
// and the turn caption.
func PNG(ctx context.Context, v View) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	size := PNGSize()
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	caption := image.Rect(pngMargin, pngPanelInset, size.X-pngMargin, pngHeader-pngPanelInset)
	drawRoundedPanel(img, caption, 10, panelColor)
	drawCenteredString(drawer, caption, v.TurnLine(), panelTextColor)

	origin := boardOrigin()
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			c := v.Cells[row][col]
			if !c.Playable {
				drawLabel(drawer, c, row, col, origin)
				continue
			}
			rect := squareRect(row-1, col-1, origin)
			fill := color.Color(lightSquare)
			if (c.Square.Rank+c.Square.File)%2 == 1 {
				fill = darkSquare
			}
			imagedraw.Draw(img, rect, image.NewUniform(fill), image.Point{}, imagedraw.Src)
			if c.Shade == Highlight {
				imagedraw.Draw(img, rect, image.NewUniform(highlightFill), image.Point{}, imagedraw.Over)
			}
			if !c.Occupied {
				continue
			}
			icon, err := renderPieceImage(c.Piece, pngSquareSize)
			if err != nil {
				return nil, err
			}
			imagedraw.Draw(img, rect, icon, image.Point{}, imagedraw.Over)
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func squareRect(rank, file int, origin image.Point) image.Rectangle {
	x := origin.X + file*pngSquareSize
	y := origin.Y + rank*pngSquareSize
	return image.Rect(x, y, x+pngSquareSize, y+pngSquareSize)
}

func drawLabel(drawer *font.Drawer, c Cell, row, col int, origin image.Point) {
	if c.Text == "" {
		return
	}
	var rect image.Rectangle
	switch {
	case row == 0:
		rect = image.Rect(origin.X+(col-1)*pngSquareSize, origin.Y-pngMargin, origin.X+col*pngSquareSize, origin.Y)
	case row == GridSize-1:
		bottom := origin.Y + 8*pngSquareSize
		rect = image.Rect(origin.X+(col-1)*pngSquareSize, bottom, origin.X+col*pngSquareSize, bottom+pngMargin)
	case col == 0:
		rect = image.Rect(origin.X-pngMargin, origin.Y+(row-1)*pngSquareSize, origin.X, origin.Y+row*pngSquareSize)
	default:
		right := origin.X + 8*pngSquareSize
		rect = image.Rect(right, origin.Y+(row-1)*pngSquareSize, right+pngMargin, origin.Y+row*pngSquareSize)
	}
	drawCenteredString(drawer, rect, c.Text, labelColor)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, center := range corners {
		drawQuarterDiscs(img, center, radius, rect, clr)
	}
}

// drawQuarterDiscs fills the corner disc around center, clipped to rect and
// to the corner square so the straight parts are not blended twice.
func drawQuarterDiscs(img *image.RGBA, center image.Point, radius int, rect image.Rectangle, clr color.Color) {
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			p := image.Pt(center.X+x, center.Y+y)
			if !p.In(rect) {
				continue
			}
			inCornerX := p.X < rect.Min.X+radius || p.X >= rect.Max.X-radius
			inCornerY := p.Y < rect.Min.Y+radius || p.Y >= rect.Max.Y-radius
			if inCornerX && inCornerY {
				blendPixel(img, p.X, p.Y, clr)
			}
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 65535 - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*0x101*inv/65535) >> 8),
		G: uint8((sg + uint32(dst.G)*0x101*inv/65535) >> 8),
		B: uint8((sb + uint32(dst.B)*0x101*inv/65535) >> 8),
		A: uint8((sa + uint32(dst.A)*0x101*inv/65535) >> 8),
	})
}
