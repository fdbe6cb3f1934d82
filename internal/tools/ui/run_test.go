package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelLifecycle(t *testing.T) {
	cancelled := false
	m := model{title: "authctl login", cancel: func() { cancelled = true }}

	next, cmd := m.Update(tickMsg{})
	if cmd == nil || next.(model).frame != 1 {
		t.Fatal("expected tick to advance the spinner")
	}
	if !strings.Contains(next.View(), "authctl login") {
		t.Fatalf("unexpected view %q", next.View())
	}

	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !cancelled {
		t.Fatal("expected ctrl+c to cancel")
	}

	next, cmd = next.Update(doneMsg{details: []string{"session ok"}, err: errors.New("boom")})
	fm := next.(model)
	if !fm.done || cmd == nil {
		t.Fatal("expected done message to quit")
	}
	view := fm.View()
	if !strings.Contains(view, "session ok") || !strings.Contains(view, "boom") {
		t.Fatalf("unexpected final view %q", view)
	}
}

func TestRenderSuccess(t *testing.T) {
	out := Render("authctl health", []string{"db: ok"}, nil)
	if !strings.Contains(out, "authctl health") || strings.Contains(out, "error:") {
		t.Fatalf("unexpected render %q", out)
	}
}
