// Package tui draws the chat page in a terminal with bubbletea. The page
// stays the source of truth: every frame is read from it, and keys are turned
// into widget calls.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"eventchat/internal/dom"
	"eventchat/internal/widget"
)

// changedMsg asks for the page to be read again
type changedMsg struct{}

type submittedMsg struct{ ok bool }

// rows taken by everything but the message viewport
const chromeRows = 5

const helpText = "enter send • tab select • ctrl+d delete • pgup/pgdn scroll • ctrl+c quit"

// Model is the bubbletea model of one chat widget.
type Model struct {
	ctx    context.Context
	widget *widget.Widget

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int

	title     string
	count     string
	errText   string
	hasForm   bool
	readOnly  string
	sending   bool
	label     string
	deletable []string
	selected  string

	confirm *confirmMsg
	alert   *alertMsg
}

// New creates the model for w. ctx bounds every request the model starts.
func New(ctx context.Context, w *widget.Widget) Model {
	in := textinput.New()
	in.Placeholder = "Write a message..."
	in.Prompt = "> "
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:      ctx,
		widget:   w,
		viewport: viewport.New(80, 20),
		input:    in,
		spinner:  sp,
	}
	m.sync()
	return m
}

// Notify returns a widget change callback that redraws p. Bursts of changes
// collapse into one redraw.
func Notify(p *tea.Program) func() {
	var pending atomic.Bool
	return func() {
		if pending.Swap(true) {
			return
		}
		go func() {
			pending.Store(false)
			p.Send(changedMsg{})
		}()
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.sync()
		return m, nil

	case changedMsg:
		return m, m.refresh()

	case submittedMsg:
		if msg.ok {
			m.widget.View(func(doc *dom.Document) {
				m.input.SetValue(doc.ByID(widget.IDInput).Value())
			})
		}
		return m, m.refresh()

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case confirmMsg:
		m.confirm = &msg
		return m, nil

	case alertMsg:
		m.alert = &msg
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.dismiss()
		return m, tea.Quit
	}

	if m.alert != nil {
		close(m.alert.done)
		m.alert = nil
		return m, nil
	}
	if m.confirm != nil {
		switch key {
		case "y", "Y":
			m.confirm.reply <- true
			m.confirm = nil
		case "n", "N", "esc":
			m.confirm.reply <- false
			m.confirm = nil
		}
		return m, nil
	}

	switch key {
	case "enter":
		return m, m.submit()
	case "tab":
		m.cycle(1)
		return m, nil
	case "shift+tab":
		m.cycle(-1)
		return m, nil
	case "ctrl+d":
		return m, m.click()
	case "pgup":
		m.scroll(-m.viewport.Height)
		return m, nil
	case "pgdown":
		m.scroll(m.viewport.Height)
		return m, nil
	case "up":
		m.scroll(-1)
		return m, nil
	case "down":
		m.scroll(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dismiss answers open dialogs so blocked widget calls can return
func (m *Model) dismiss() {
	if m.confirm != nil {
		m.confirm.reply <- false
		m.confirm = nil
	}
	if m.alert != nil {
		close(m.alert.done)
		m.alert = nil
	}
}

// refresh rereads the page and starts the spinner when a send begins
func (m *Model) refresh() tea.Cmd {
	was := m.sending
	m.sync()
	if m.sending && !was {
		return m.spinner.Tick
	}
	return nil
}

func (m Model) submit() tea.Cmd {
	if !m.hasForm || m.sending {
		return nil
	}
	w, ctx := m.widget, m.ctx
	w.SetInput(m.input.Value())
	return func() tea.Msg {
		return submittedMsg{ok: w.Submit(ctx)}
	}
}

func (m Model) click() tea.Cmd {
	if m.selected == "" {
		return nil
	}
	var btn dom.Element
	m.widget.View(func(doc *dom.Document) {
		for _, b := range doc.ByID(widget.IDMessages).QueryAll(".delete-btn") {
			if b.Data("message-id") == m.selected {
				btn = b
				return
			}
		}
	})
	if !btn.Exists() {
		return nil
	}
	w, ctx := m.widget, m.ctx
	return func() tea.Msg {
		w.Click(ctx, btn)
		return changedMsg{}
	}
}

func (m *Model) cycle(dir int) {
	if len(m.deletable) == 0 {
		m.selected = ""
		return
	}
	i := slices.Index(m.deletable, m.selected)
	switch {
	case i < 0 && dir > 0:
		i = 0
	case i < 0:
		i = len(m.deletable) - 1
	default:
		i = (i + dir + len(m.deletable)) % len(m.deletable)
	}
	m.selected = m.deletable[i]
	m.sync()
}

func (m *Model) scroll(delta int) {
	m.widget.Update(func(doc *dom.Document) {
		box := doc.ByID(widget.IDMessages)
		box.SetScrollTop(box.ScrollTop() + delta)
	})
	m.sync()
}

// resize fits the viewport to the terminal and tells the page its new
// geometry.
func (m *Model) resize() {
	width := max(m.width, 1)
	height := max(m.height-chromeRows, 1)
	m.viewport.Width = width
	m.viewport.Height = height
	m.input.Width = max(width-16, 10)

	m.widget.Update(func(doc *dom.Document) {
		doc.SetLayout(layout(doc, width))
		doc.ByID(widget.IDMessages).SetClientHeight(height)
	})
}

// sync reads the page into the model
func (m *Model) sync() {
	var (
		blocks []string
		top    int
	)
	m.widget.View(func(doc *dom.Document) {
		m.title = strings.TrimSpace(doc.Query(".event-title").Text())
		m.count = strings.TrimSpace(doc.ByID(widget.IDCounter).Text())
		m.errText = strings.TrimSpace(doc.ByID(widget.IDErrors).Text())

		form := doc.ByID(widget.IDForm)
		m.hasForm = form.Exists()
		btn := form.Query("button[type=submit]")
		m.sending = btn.Disabled()
		m.label = strings.TrimSpace(btn.Text())
		if !m.hasForm {
			m.readOnly = strings.TrimSpace(doc.Query("#chat-root p.text-muted").Text())
		}

		box := doc.ByID(widget.IDMessages)
		m.deletable = nil
		for _, el := range box.Children() {
			id := ""
			if b := el.Query(".delete-btn"); b.Exists() && !b.Hidden() {
				id = b.Data("message-id")
				m.deletable = append(m.deletable, id)
			}
			blocks = append(blocks, block(el, m.viewport.Width, id != "" && id == m.selected))
		}
		top = box.ScrollTop()
	})
	if !slices.Contains(m.deletable, m.selected) {
		m.selected = ""
	}
	m.viewport.SetContent(strings.Join(blocks, "\n"))
	m.viewport.SetYOffset(top)
}

func (m Model) View() string {
	var b strings.Builder

	title := m.title
	if title == "" {
		title = "Chat"
	}
	count := m.count
	if count == "" {
		count = "0"
	}
	b.WriteString(titleStyle.Render(title) + mutedStyle.Render(fmt.Sprintf(" · %s messages", count)) + "\n")
	b.WriteString(m.viewport.View() + "\n")

	switch {
	case m.alert != nil:
		b.WriteString(dialogStyle.Render(m.alert.text + "\n" + mutedStyle.Render("press any key")))
	case m.confirm != nil:
		b.WriteString(dialogStyle.Render(m.confirm.question + " " + mutedStyle.Render("[y/n]")))
	default:
		b.WriteString(errorStyle.Render(m.errText) + "\n")
		if !m.hasForm {
			b.WriteString(mutedStyle.Render(m.readOnly) + "\n")
		} else {
			button := "[" + m.label + "]"
			if m.sending {
				button = m.spinner.View() + " " + m.label
			}
			b.WriteString(m.input.View() + "  " + button + "\n")
		}
		b.WriteString(mutedStyle.Render(helpText))
	}
	return b.String()
}
