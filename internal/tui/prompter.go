package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

type confirmMsg struct {
	question string
	reply    chan bool
}

type alertMsg struct {
	text string
	done chan struct{}
}

// Prompter shows the widget's confirmations and alerts as dialogs of a running
// program. Calls block until the dialog is answered or ctx is done.
type Prompter struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// Attach routes dialogs to send, usually (*tea.Program).Send.
func (p *Prompter) Attach(send func(tea.Msg)) {
	p.mu.Lock()
	p.send = send
	p.mu.Unlock()
}

func (p *Prompter) post(msg tea.Msg) bool {
	p.mu.Lock()
	send := p.send
	p.mu.Unlock()
	if send == nil {
		return false
	}
	send(msg)
	return true
}

// Confirm asks a yes/no question. Without an attached program the answer is no.
func (p *Prompter) Confirm(ctx context.Context, question string) bool {
	reply := make(chan bool, 1)
	if !p.post(confirmMsg{question: question, reply: reply}) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}

// Alert shows text until a key is pressed.
func (p *Prompter) Alert(ctx context.Context, text string) {
	done := make(chan struct{})
	if !p.post(alertMsg{text: text, done: done}) {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}
