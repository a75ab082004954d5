// Package tui is an interactive form for filling in and sending one print
// job at a time.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/thereceipt/printer-tool/internal/command"
	"github.com/thereceipt/printer-tool/internal/config"
	"github.com/thereceipt/printer-tool/internal/job"
)

type field struct {
	label string
	value *string
	input textinput.Model
}

type printDoneMsg struct {
	result *job.Result
	err    error
}

// Form is the Bubble Tea model of the print form.
type Form struct {
	ctx    context.Context
	runner command.Runner
	opts   job.Options

	fields  []field
	focus   int
	spinner spinner.Model

	printing bool
	message  string
	failed   bool
	quitting bool
}

// NewForm creates a form prefilled from cfg. Submitting it runs the job
// on runner.
func NewForm(ctx context.Context, runner command.Runner, cfg config.Config) *Form {
	f := &Form{
		ctx:    ctx,
		runner: runner,
		opts:   command.DefaultOptions(cfg),
	}

	o := &f.opts
	defs := []struct {
		label, placeholder string
		value              *string
	}{
		{"File", "path/to/image.png", &o.File},
		{"Mode", "escpos or label", &o.Mode},
		{"Paper", "58 or 80", &o.Paper},
		{"Connection", "usb, windows, serial or network", &o.Connection},
		{"Printer name", "OS default", &o.PrinterName},
		{"USB VID", "0x04b8", &o.USBVID},
		{"USB PID", "0x0202", &o.USBPID},
		{"USB interface", "0", &o.USBInterface},
		{"DPI", strconv.Itoa(job.DefaultDPI), &o.DPI},
		{"Threshold", strconv.Itoa(job.DefaultThreshold), &o.Threshold},
		{"Darkness", strconv.Itoa(job.DefaultDarkness), &o.Darkness},
	}
	for _, d := range defs {
		in := textinput.New()
		in.Placeholder = d.placeholder
		in.CharLimit = 256
		in.Width = 40
		in.SetValue(*d.value)
		f.fields = append(f.fields, field{label: d.label, value: d.value, input: in})
	}
	f.fields[0].input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	f.spinner = s

	return f
}

// Init initializes the form
func (f *Form) Init() tea.Cmd {
	return textinput.Blink
}

func (f *Form) setFocus(i int) {
	f.fields[f.focus].input.Blur()
	f.focus = (i + len(f.fields)) % len(f.fields)
	f.fields[f.focus].input.Focus()
}

// Options returns the options as currently typed.
func (f *Form) Options() job.Options {
	for _, fl := range f.fields {
		*fl.value = strings.TrimSpace(fl.input.Value())
	}
	return f.opts
}

func (f *Form) submit() tea.Cmd {
	req, err := job.Parse(f.Options())
	if err != nil {
		f.message, f.failed = err.Error(), true
		return nil
	}

	f.printing = true
	f.message = ""
	runner, ctx := f.runner, f.ctx
	run := func() tea.Msg {
		res, err := runner.Run(ctx, req)
		return printDoneMsg{result: res, err: err}
	}
	return tea.Batch(f.spinner.Tick, run)
}

// Update handles messages
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case printDoneMsg:
		f.printing = false
		if msg.err != nil {
			f.message, f.failed = msg.err.Error(), true
		} else {
			f.message, f.failed = "Print job sent successfully.", false
		}
		return f, nil

	case spinner.TickMsg:
		if !f.printing {
			return f, nil
		}
		var cmd tea.Cmd
		f.spinner, cmd = f.spinner.Update(msg)
		return f, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			f.quitting = true
			return f, tea.Quit
		}
		if f.printing {
			return f, nil
		}
		switch msg.String() {
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return f, nil
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return f, nil
		case "enter":
			if f.focus == len(f.fields)-1 {
				return f, f.submit()
			}
			f.setFocus(f.focus + 1)
			return f, nil
		case "ctrl+p":
			return f, f.submit()
		}
	}

	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return f, cmd
}

// View renders the form
func (f *Form) View() string {
	if f.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Print Image"))
	b.WriteString("\n")

	for i, fl := range f.fields {
		label, box := InputLabelStyle, InputStyle
		if i == f.focus {
			label, box = InputLabelFocusedStyle, InputFocusedStyle
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, label.Render(fl.label), box.Render(fl.input.View())))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case f.printing:
		b.WriteString(f.spinner.View() + " Printing...")
	case f.message != "" && f.failed:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %s", f.message)))
	case f.message != "":
		b.WriteString(SuccessStyle.Render(f.message))
	}
	b.WriteString("\n\n")

	b.WriteString(RenderHelp("tab/↑/↓", "field") + "  " +
		RenderHelp("enter", "next") + "  " +
		RenderHelp("ctrl+p", "print") + "  " +
		RenderHelp("esc", "quit"))
	return b.String()
}

// Run shows the form until the user quits or ctx is cancelled.
func Run(ctx context.Context, runner command.Runner, cfg config.Config) error {
	p := tea.NewProgram(NewForm(ctx, runner, cfg), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
