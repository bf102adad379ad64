package runner

import (
	"strings"

	"dbakit/internal/facility"
	"dbakit/internal/oraenv"
)

// Tool describes how to launch one external command-line tool.
type Tool struct {
	Name string
	// Layout locates the executable and libraries under the home.
	Layout oraenv.Layout
	// Preamble is written to stdin ahead of the caller's command text.
	Preamble string
	// Components is the default error-scan filter.
	Components []string
	// DefaultConnect is used when the request carries no connect string.
	DefaultConnect string
	// ConnectArgs turns a connect string into the leading arguments.
	ConnectArgs func(connect string) []string
	// Stdin is false for tools that take everything on the command line.
	Stdin bool
	// Terminator is appended to the trimmed command text when missing.
	Terminator string
	// TrimOutput strips trailing whitespace from the captured output.
	TrimOutput bool
}

func sqlplusArgs(connect string) []string { return []string{"-S", "-L", connect} }
func rmanArgs(connect string) []string    { return []string{connect} }
func dgmgrlArgs(connect string) []string  { return []string{"-silent", connect} }

var sqlplusComponents = []string{"sqlplus", "rdbms", "oracore"}

var (
	// SQLPlus runs report scripts.
	SQLPlus = Tool{
		Name:           "sqlplus",
		Layout:         oraenv.StandardLayout("sqlplus"),
		Preamble:       sqlplusReportPreamble,
		Components:     sqlplusComponents,
		DefaultConnect: "/ as sysdba",
		ConnectArgs:    sqlplusArgs,
		Stdin:          true,
		TrimOutput:     true,
	}

	// SQLPlusQuery runs a single query whose output is parsed as rows.
	SQLPlusQuery = Tool{
		Name:           "sqlplus",
		Layout:         oraenv.StandardLayout("sqlplus"),
		Preamble:       sqlplusQueryPreamble,
		Components:     sqlplusComponents,
		DefaultConnect: "/ as sysdba",
		ConnectArgs:    sqlplusArgs,
		Stdin:          true,
		Terminator:     ";",
		TrimOutput:     true,
	}

	// SQLPlusInstantClient is SQLPlusQuery for a flat instant client home.
	SQLPlusInstantClient = Tool{
		Name:           "sqlplus",
		Layout:         oraenv.FlatLayout("sqlplus"),
		Preamble:       sqlplusQueryPreamble,
		Components:     sqlplusComponents,
		DefaultConnect: "/ as sysdba",
		ConnectArgs:    sqlplusArgs,
		Stdin:          true,
		Terminator:     ";",
		TrimOutput:     true,
	}

	// RMAN runs recovery manager scripts.
	RMAN = Tool{
		Name:           "rman",
		Layout:         oraenv.StandardLayout("rman"),
		Components:     []string{facility.AllComponents},
		DefaultConnect: "target /",
		ConnectArgs:    rmanArgs,
		Stdin:          true,
	}

	// DGMGRL runs Data Guard broker commands.
	DGMGRL = Tool{
		Name:           "dgmgrl",
		Layout:         oraenv.StandardLayout("dgmgrl"),
		Components:     []string{facility.AllComponents},
		DefaultConnect: "/",
		ConnectArgs:    dgmgrlArgs,
		Stdin:          true,
		TrimOutput:     true,
	}

	// Olsnodes queries cluster membership from the grid home.
	Olsnodes = Tool{
		Name:       "olsnodes",
		Layout:     oraenv.StandardLayout("olsnodes"),
		Components: []string{facility.AllComponents},
		TrimOutput: true,
	}

	// Tnsping checks a net service name.
	Tnsping = Tool{
		Name:       "tnsping",
		Layout:     oraenv.StandardLayout("tnsping"),
		Components: []string{"network"},
		TrimOutput: true,
	}

	// SQLPlusVersion prints the client version banner.
	SQLPlusVersion = Tool{
		Name:       "sqlplus",
		Layout:     oraenv.StandardLayout("sqlplus"),
		Components: sqlplusComponents,
		TrimOutput: true,
	}
)

// Tools lists the tool table by command name; variants share a name.
func Tools() []Tool {
	return []Tool{SQLPlus, SQLPlusQuery, SQLPlusInstantClient, RMAN, DGMGRL, Olsnodes, Tnsping}
}

// IsLocalConnect reports whether connect attaches to a local instance
// with OS authentication ("/ as sysdba", "target /", "/"), which needs
// an instance identity.
func IsLocalConnect(connect string) bool {
	fields := strings.Fields(strings.ToLower(connect))
	if len(fields) > 0 && fields[0] == "target" {
		fields = fields[1:]
	}
	if len(fields) == 0 || strings.Contains(connect, "@") {
		return false
	}
	return fields[0] == "/"
}

func (t Tool) connect(requested string) string {
	if requested != "" {
		return requested
	}
	return t.DefaultConnect
}

func (t Tool) argv(connect string, extra []string) []string {
	var args []string
	if t.ConnectArgs != nil && connect != "" {
		args = append(args, t.ConnectArgs(connect)...)
	}
	return append(args, extra...)
}

func (t Tool) payload(text string) string {
	if t.Terminator != "" {
		text = strings.TrimRight(text, " \t\r\n")
		if !strings.HasSuffix(text, t.Terminator) {
			text += t.Terminator
		}
		text += "\n"
	}
	return t.Preamble + text
}
