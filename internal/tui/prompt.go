package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/park285/cheese-board-client/internal/msgcat"
	"github.com/rivo/tview"
)

const promotionPage = "promotion"

// Prompt is the modal promotion dialog. Ask and Dismiss may be called from
// any goroutine; the dialog itself is built on the UI goroutine.
type Prompt struct {
	app     *tview.Application
	pages   *tview.Pages
	back    tview.Primitive
	cat     *msgcat.Catalog
	enqueue func(func())
	resolve func(token uint64, answer string, ok bool)

	// UI goroutine only
	input  *tview.InputField
	finish func(answer string, ok bool)
}

func newPrompt(app *tview.Application, pages *tview.Pages, back tview.Primitive, cat *msgcat.Catalog, enqueue func(func()), resolve func(uint64, string, bool)) *Prompt {
	return &Prompt{app: app, pages: pages, back: back, cat: cat, enqueue: enqueue, resolve: resolve}
}

func (p *Prompt) Ask(token uint64) {
	p.enqueue(func() { p.open(token) })
}

func (p *Prompt) Dismiss() {
	p.enqueue(p.close)
}

func (p *Prompt) open(token uint64) {
	p.close()

	input := tview.NewInputField().
		SetLabel(p.cat.Text("prompt.label", nil)).
		SetPlaceholder(p.cat.Text("prompt.placeholder", nil)).
		SetFieldWidth(30)

	answered := false
	finish := func(answer string, ok bool) {
		if answered {
			return
		}
		answered = true
		p.close()
		p.resolve(token, answer, ok)
	}

	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			finish(input.GetText(), true)
		case tcell.KeyEscape:
			finish("", false)
		}
	})

	form := tview.NewForm().
		AddFormItem(input).
		AddButton(p.cat.Text("prompt.ok", nil), func() { finish(input.GetText(), true) }).
		AddButton(p.cat.Text("prompt.cancel", nil), func() { finish("", false) }).
		SetCancelFunc(func() { finish("", false) })
	form.SetBorder(true).SetTitle(p.cat.Text("prompt.title", nil))

	p.input, p.finish = input, finish
	p.pages.AddPage(promotionPage, centered(form, 48, 7), true, true)
	p.app.SetFocus(form)
}

func (p *Prompt) close() {
	p.input, p.finish = nil, nil
	if !p.pages.HasPage(promotionPage) {
		return
	}
	p.pages.RemovePage(promotionPage)
	if p.back != nil {
		p.app.SetFocus(p.back)
	}
}

func (p *Prompt) isOpen() bool { return p.pages.HasPage(promotionPage) }

func centered(inner tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(inner, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}
