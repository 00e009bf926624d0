package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes run progress and results to the console. Colors are dropped
// automatically when out is not a terminal.
type Printer struct {
	out io.Writer

	headerStyle  lipgloss.Style
	warnStyle    lipgloss.Style
	failureStyle lipgloss.Style
	hintStyle    lipgloss.Style
}

func NewPrinter(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:          out,
		headerStyle:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		warnStyle:    r.NewStyle().Foreground(lipgloss.Color("214")),
		failureStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		hintStyle:    r.NewStyle().Faint(true),
	}
}

func (p *Printer) Progress(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.out, p.warnStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Title(title string) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.headerStyle.Render(fmt.Sprintf("--- Title: %s ---", title)))
}

func (p *Printer) Summary(summary string) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.headerStyle.Render("--- Summary ---"))
	fmt.Fprintln(p.out, summary)
}

// Failure prints a one-line error, with an optional remediation hint below it.
func (p *Printer) Failure(msg, hint string) {
	fmt.Fprintln(p.out, p.failureStyle.Render(msg))
	if hint != "" {
		fmt.Fprintln(p.out, p.hintStyle.Render(hint))
	}
}
