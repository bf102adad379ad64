package cli

// This file wraps pterm for terminal output. Status lines and spinners
// are decoration; data that scripts consume, tables included, is
// written through a Printer so commands can redirect it.

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
)

func Info(msg string)    { pterm.Info.Println(msg) }
func Warn(msg string)    { pterm.Warning.Println(msg) }
func Error(msg string)   { pterm.Error.Println(msg) }
func Success(msg string) { pterm.Success.Println(msg) }

func Green(s string) string  { return pterm.Green(s) }
func Yellow(s string) string { return pterm.Yellow(s) }
func Cyan(s string) string   { return pterm.Cyan(s) }

// Printer writes command output. Quiet suppresses decorations but never
// data written with Printf, Println or Table.
type Printer struct {
	Quiet bool
	Out   io.Writer
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer) *Printer { return &Printer{Out: out} }

func (p *Printer) out() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}

// Step prints a progress line with the decorations.
func (p *Printer) Step(msg string) {
	if p.Quiet {
		return
	}
	pterm.Println(Cyan("> ") + msg)
}

func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out(), format, args...)
}

func (p *Printer) Println(args ...any) {
	fmt.Fprintln(p.out(), args...)
}

// Table renders data to the printer's writer, first row as header.
func (p *Printer) Table(data [][]string) {
	if len(data) == 0 {
		return
	}
	s, err := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData(data)).Srender()
	if err != nil {
		return
	}
	fmt.Fprintln(p.out(), s)
}

// SpinnerStart shows a spinner on stderr until the returned stop func is
// called.
// In quiet mode, or when the spinner cannot start, stop is a no-op.
func (p *Printer) SpinnerStart(msg string) func(ok bool, msg string) {
	if p.Quiet {
		return func(bool, string) {}
	}
	spinner, err := pterm.DefaultSpinner.WithWriter(os.Stderr).Start(msg)
	if err != nil {
		return func(bool, string) {}
	}
	return func(ok bool, msg string) {
		if ok {
			spinner.Success(msg)
			return
		}
		spinner.Fail(msg)
	}
}
