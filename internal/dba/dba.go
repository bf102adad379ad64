// Package dba implements the database checks built on the command
// runner: result-set queries, parameter and state lookups, RMAN
// configuration and listener checks.
package dba

import (
	"context"
	"regexp"
	"strings"

	"dbakit/internal/humanfmt"
	"dbakit/internal/runner"
	"dbakit/pkg/errx"
)

// DefaultColsep separates columns in query output.
const DefaultColsep = "~"

// Database states reported by State in addition to v$instance.status.
const (
	StateStopped = "STOPPED"
	StateUnknown = "UNKNOWN"
)

// ErrInvalidParameterName rejects names that cannot be a parameter.
var ErrInvalidParameterName = errx.Define(errx.CodeCLI, "invalid parameter name")

var (
	parameterName = regexp.MustCompile(`^[A-Za-z0-9_#$]+$`)
	versionBanner = regexp.MustCompile(`\d{2}\.\d+\.\d+\.\d+\.\d+`)
	instanceDown  = regexp.MustCompile(`ORA-01034`)
)

// Client issues checks through a runner.
type Client struct {
	run           *runner.Runner
	connect       string
	colsep        string
	instantClient bool
}

// Option configures a Client.
type Option func(*Client)

// WithConnect sets the connect string for SQL*Plus and RMAN sessions.
func WithConnect(connect string) Option { return func(c *Client) { c.connect = connect } }

// WithColsep sets the query column separator.
func WithColsep(sep string) Option {
	return func(c *Client) {
		if sep != "" {
			c.colsep = sep
		}
	}
}

// WithInstantClient runs queries through an instant client home.
func WithInstantClient(on bool) Option { return func(c *Client) { c.instantClient = on } }

// New returns a Client using r.
func New(r *runner.Runner, opts ...Option) *Client {
	c := &Client{run: r, colsep: DefaultColsep}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResultSet is the parsed output of a query.
type ResultSet struct {
	Rows   [][]string
	Result *runner.Result
}

// RowCount returns the number of rows.
func (rs *ResultSet) RowCount() int { return len(rs.Rows) }

// ParseRows splits output into rows on newlines and columns on sep.
// Blank output yields no rows; cells are trimmed.
func ParseRows(output, sep string) [][]string {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}
	var rows [][]string
	for _, line := range strings.Split(output, "\n") {
		cells := strings.Split(strings.TrimSpace(line), sep)
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, cells)
	}
	return rows
}

func (c *Client) queryTool() runner.Tool {
	if c.instantClient {
		return runner.SQLPlusInstantClient
	}
	return runner.SQLPlusQuery
}

// Query runs sql with error checking and parses the rows. On coded
// errors the returned ResultSet still carries the run.
func (c *Client) Query(ctx context.Context, sql string) (*ResultSet, error) {
	input := `set colsep "` + c.colsep + `"` + "\n" + sql
	res, err := c.run.Run(ctx, c.queryTool(), runner.Request{
		Input:      input,
		Connect:    c.connect,
		ErrorCheck: true,
	})
	if res == nil {
		return nil, err
	}
	rs := &ResultSet{Result: res}
	if err == nil {
		rs.Rows = ParseRows(res.Output, c.colsep)
	}
	return rs, err
}

// Parameter returns the current value of an instance parameter,
// including hidden ones.
func (c *Client) Parameter(ctx context.Context, name string) (string, error) {
	if !parameterName.MatchString(name) {
		return "", errx.From(ErrInvalidParameterName, "invalid parameter name "+name, nil).
			WithContext("parameter", name)
	}
	sql := "column value format a500\n" +
		"select sv.ksppstvl value\n" +
		"  from sys.x$ksppi i, sys.x$ksppsv sv\n" +
		" where i.indx = sv.indx\n" +
		"   and i.ksppinm = '" + strings.ToLower(name) + "'"
	res, err := c.run.Run(ctx, c.queryTool(), runner.Request{Input: sql, Connect: c.connect, ErrorCheck: true})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Output), nil
}

// State returns STOPPED when the instance is down, the v$instance status
// when it answers, and UNKNOWN otherwise.
func (c *Client) State(ctx context.Context) (string, error) {
	const sep = "!~!"
	sql := "select 'DB_STATUS' || '" + sep + "' || upper(status) from v$instance"
	res, err := c.run.Run(ctx, c.queryTool(), runner.Request{Input: sql, Connect: c.connect})
	if err != nil {
		return "", err
	}
	if instanceDown.MatchString(res.Output) {
		return StateStopped, nil
	}
	for _, line := range strings.Split(res.Output, "\n") {
		if _, state, ok := strings.Cut(line, "DB_STATUS"+sep); ok {
			return strings.TrimSpace(state), nil
		}
	}
	return StateUnknown, nil
}

// IsCDB reports whether the database is a container database. Releases
// without a CDB column in v$database are never CDBs.
func (c *Client) IsCDB(ctx context.Context) (bool, error) {
	res, err := c.run.Run(ctx, runner.SQLPlus, runner.Request{
		Input:      "set lines 80\ndesc v$database\nexit\n",
		Connect:    c.connect,
		ErrorCheck: true,
	})
	if err != nil {
		return false, err
	}
	hasColumn := false
	for _, line := range strings.Split(res.Output, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "CDB ") {
			hasColumn = true
			break
		}
	}
	if !hasColumn {
		return false, nil
	}
	rs, err := c.Query(ctx, "select cdb from v$database")
	if err != nil {
		return false, err
	}
	return rs.RowCount() > 0 && strings.EqualFold(rs.Rows[0][0], "YES"), nil
}

// RMANConfig returns the CONFIGURE lines of "show all".
func (c *Client) RMANConfig(ctx context.Context) ([]string, error) {
	res, err := c.run.Run(ctx, runner.RMAN, runner.Request{
		Input:      "show all;\n",
		Connect:    c.rmanConnect(),
		ErrorCheck: true,
	})
	if res == nil {
		return nil, err
	}
	var config []string
	for _, line := range strings.Split(res.Output, "\n") {
		if strings.HasPrefix(line, "CONFIGURE ") {
			config = append(config, strings.TrimRight(line, " \r"))
		}
	}
	return config, err
}

// BackupsSince lists backups completed after date, given as
// YYYY-MM-DD[ HH24[:MI[:SS]]].
func (c *Client) BackupsSince(ctx context.Context, date string) (*runner.Result, error) {
	mask, err := humanfmt.DateMask(date)
	if err != nil {
		return nil, err
	}
	rcv := `list backup completed after "to_date('` + date + `','` + mask + `')";` + "\n"
	return c.run.Run(ctx, runner.RMAN, runner.Request{Input: rcv, Connect: c.rmanConnect(), ErrorCheck: true})
}

// Version returns the client release from "sqlplus -v", or "unknown".
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.run.Run(ctx, runner.SQLPlusVersion, runner.Request{Args: []string{"-v"}})
	if err != nil {
		return "", err
	}
	if v := versionBanner.FindString(res.Output); v != "" {
		return v, nil
	}
	return "unknown", nil
}

// TNSPing resolves a net service name and scans the reply for TNS errors.
func (c *Client) TNSPing(ctx context.Context, alias string) (*runner.Result, error) {
	return c.run.Run(ctx, runner.Tnsping, runner.Request{Args: []string{alias}, ErrorCheck: true})
}

// rmanConnect maps the SQL*Plus default onto the RMAN one.
func (c *Client) rmanConnect() string {
	if c.connect == "" || c.connect == "/ as sysdba" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(c.connect), "target ") {
		return c.connect
	}
	return "target " + strings.TrimSuffix(c.connect, " as sysdba")
}
