package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thereceipt/printer-tool/internal/config"
	"github.com/thereceipt/printer-tool/internal/job"
)

type fakeRunner struct {
	req job.Request
	err error
}

func (f *fakeRunner) Run(_ context.Context, req job.Request) (*job.Result, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &job.Result{ID: "1"}, nil
}

func typeText(f *Form, s string) {
	for _, r := range s {
		f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func key(f *Form, t tea.KeyType) tea.Cmd {
	_, cmd := f.Update(tea.KeyMsg{Type: t})
	return cmd
}

// runBatch executes cmd and feeds any printDoneMsg back into the form.
func runBatch(t *testing.T, f *Form, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			if done, ok := c().(printDoneMsg); ok {
				f.Update(done)
			}
		}
		return
	}
	if done, ok := msg.(printDoneMsg); ok {
		f.Update(done)
	}
}

func TestFormDefaultsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Print.Mode = "label"
	f := NewForm(context.Background(), &fakeRunner{}, cfg)

	o := f.Options()
	if o.Mode != "label" || o.DPI != "203" || o.Darkness != "100" || o.Threshold != "128" {
		t.Errorf("options = %+v", o)
	}
}

func TestFormNavigation(t *testing.T) {
	f := NewForm(context.Background(), &fakeRunner{}, config.Default())
	key(f, tea.KeyTab)
	if f.focus != 1 {
		t.Fatalf("focus = %d, want 1", f.focus)
	}
	key(f, tea.KeyShiftTab)
	key(f, tea.KeyShiftTab)
	if f.focus != len(f.fields)-1 {
		t.Errorf("focus = %d, want wrap to last field", f.focus)
	}
}

func TestFormValidationError(t *testing.T) {
	r := &fakeRunner{}
	f := NewForm(context.Background(), r, config.Default())
	typeText(f, "logo.png")

	cmd := key(f, tea.KeyCtrlP)
	if cmd != nil {
		t.Fatal("invalid form must not start a job")
	}
	if !f.failed || !strings.Contains(f.View(), "Error:") {
		t.Errorf("view does not show the error:\n%s", f.View())
	}
}

func TestFormSubmit(t *testing.T) {
	r := &fakeRunner{}
	f := NewForm(context.Background(), r, config.Default())

	typeText(f, "logo.png")
	key(f, tea.KeyEnter)
	typeText(f, "escpos")
	key(f, tea.KeyEnter)
	typeText(f, "58")
	key(f, tea.KeyEnter)
	typeText(f, "windows")

	runBatch(t, f, key(f, tea.KeyCtrlP))

	if f.failed {
		t.Fatalf("unexpected error: %s", f.message)
	}
	if f.message != "Print job sent successfully." {
		t.Errorf("message = %q", f.message)
	}
	if r.req.File != "logo.png" || r.req.Connection != job.ConnWindows {
		t.Errorf("request = %+v", r.req)
	}
}

func TestFormRunnerError(t *testing.T) {
	r := &fakeRunner{err: errors.New("spooler unavailable")}
	f := NewForm(context.Background(), r, config.Default())
	for i, v := range []string{"a.png", "label", "80", "windows"} {
		f.setFocus(i)
		typeText(f, v)
	}

	runBatch(t, f, key(f, tea.KeyCtrlP))
	if !f.failed || !strings.Contains(f.message, "spooler unavailable") {
		t.Errorf("message = %q", f.message)
	}
}

func TestFormNumericPlaceholders(t *testing.T) {
	f := NewForm(context.Background(), &fakeRunner{}, config.Default())
	want := map[string]string{"DPI": "203", "Threshold": "128", "Darkness": "100"}
	for _, fl := range f.fields {
		if w, ok := want[fl.label]; ok && fl.input.Placeholder != w {
			t.Errorf("%s placeholder = %q, want %q", fl.label, fl.input.Placeholder, w)
		}
	}
}
