package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// linePrompter asks questions on a plain terminal
type linePrompter struct {
	in  io.Reader
	out io.Writer
	yes bool
}

func (p *linePrompter) Confirm(ctx context.Context, question string) bool {
	if p.yes {
		return true
	}
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (p *linePrompter) Alert(ctx context.Context, text string) {
	fmt.Fprintln(p.out, text)
}
