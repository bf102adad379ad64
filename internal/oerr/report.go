package oerr

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"dbakit/internal/errscan"
)

// Report is the diagnostic block printed when a tool run reported coded
// errors.
type Report struct {
	Command []string
	Output  string
	Result  errscan.Result
}

// WriteReport renders the echoed command, the captured output and the
// explanation of each distinct code. lookup may be nil, in which case
// explanations are omitted.
func WriteReport(w io.Writer, r Report, lookup *Lookup) error {
	var b strings.Builder
	if len(r.Command) > 0 {
		fmt.Fprintf(&b, "Command: %s\n", QuoteCommand(r.Command))
	}
	b.WriteString("Output:\n")
	for _, line := range strings.Split(strings.TrimRight(r.Output, "\n"), "\n") {
		fmt.Fprintf(&b, "  %s\n", line)
	}

	for _, code := range r.Result.Codes() {
		fmt.Fprintf(&b, "\n%s\n", code)
		if lookup == nil {
			continue
		}
		msg, err := lookup.Explain(code)
		switch {
		case err == nil:
			for _, line := range msg.Text() {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		case errors.Is(err, ErrCodeNotFound):
			b.WriteString("  (no catalog entry)\n")
		default:
			fmt.Fprintf(&b, "  (%s)\n", errWithoutCode(err))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// QuoteCommand joins argv into a line that can be pasted into a POSIX
// shell.
func QuoteCommand(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			q = strconv.Quote(arg)
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " ")
}

func errWithoutCode(err error) string {
	type messager interface{ Message() string }
	var m messager
	if errors.As(err, &m) && m.Message() != "" {
		return m.Message()
	}
	return err.Error()
}
