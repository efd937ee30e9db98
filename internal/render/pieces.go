package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/cheese-board-client/internal/board"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

type pieceCacheKey struct {
	piece board.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// Silhouettes on a 45x45 view box; every piece shares the plinth.
var pieceShapes = map[board.PieceKind][]string{
	board.Pawn: {
		`<circle cx="22.5" cy="14" r="6"/>`,
		`<polygon points="16,36 29,36 26,21 19,21"/>`,
	},
	board.Rook: {
		`<polygon points="12,9 17,9 17,12 20.5,12 20.5,9 24.5,9 24.5,12 28,12 28,9 33,9 33,16 29,19 29,32 16,32 16,19 12,16"/>`,
		`<rect x="13" y="32" width="19" height="4"/>`,
	},
	board.Knight: {
		`<path d="M14 36 L16 25 L11 21 L15 12 L22 7 L30 11 L34 22 L31 36 Z"/>`,
	},
	board.Bishop: {
		`<circle cx="22.5" cy="7" r="2.5"/>`,
		`<polygon points="22.5,9 29.5,19 27,32 18,32 15.5,19"/>`,
	},
	board.Queen: {
		`<polygon points="8,13 15,31 30,31 37,13 29,23 26,10 22.5,22 19,10 16,23"/>`,
		`<circle cx="8" cy="12" r="2.5"/>`,
		`<circle cx="19" cy="9" r="2.5"/>`,
		`<circle cx="26" cy="9" r="2.5"/>`,
		`<circle cx="37" cy="12" r="2.5"/>`,
	},
	board.King: {
		`<rect x="21" y="3" width="3" height="11"/>`,
		`<rect x="17.5" y="6" width="10" height="3"/>`,
		`<polygon points="11,18 34,18 29,33 16,33"/>`,
	},
}

const plinth = `<rect x="10" y="36" width="25" height="5"/>`

func pieceSVG(p board.Piece) (string, error) {
	shapes, ok := pieceShapes[p.Kind]
	if !ok {
		return "", fmt.Errorf("no shape for piece kind %q", p.Kind)
	}
	fill, stroke := "#f8f8f8", "#1e1e1e"
	if p.Color == board.Black {
		fill, stroke = "#1e1e1e", "#f0f0f0"
	}
	style := fmt.Sprintf(` fill="%s" stroke="%s" stroke-width="1.5"/>`, fill, stroke)

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">`)
	for _, s := range append(shapes, plinth) {
		b.WriteString(strings.TrimSuffix(s, "/>"))
		b.WriteString(style)
	}
	b.WriteString(`</svg>`)
	return b.String(), nil
}

func renderPieceImage(p board.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: p, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
