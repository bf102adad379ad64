// Package cluster discovers cluster membership by running olsnodes from
// the grid infrastructure home registered for the ASM instance.
package cluster

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dbakit/internal/oratab"
	"dbakit/internal/runner"
	"dbakit/pkg/errx"
)

// ErrNoGridHome is returned when the registry has no ASM instance.
var ErrNoGridHome = errx.Define(errx.CodeIdentity, "no grid infrastructure home registered")

// Discovery queries cluster membership.
type Discovery struct {
	run    *runner.Runner
	oratab []string
	logger *zap.Logger
}

// New returns a Discovery that locates the grid home through the
// registry candidates (nil uses the defaults).
func New(r *runner.Runner, candidates []string, logger *zap.Logger) *Discovery {
	if candidates == nil {
		candidates = oratab.Candidates("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{run: r, oratab: candidates, logger: logger}
}

// GridHome returns the home of the last +ASM instance in the registry.
func (d *Discovery) GridHome() (string, error) {
	reg, err := oratab.LoadFrom(d.oratab)
	if home := reg.ASMHome(); home != "" {
		return home, nil
	}
	return "", errx.From(ErrNoGridHome, "no +ASM instance in the instance registry", err)
}

// Raw runs olsnodes with an optional flag (without the leading dash).
func (d *Discovery) Raw(ctx context.Context, flag string) (*runner.Result, error) {
	home, err := d.GridHome()
	if err != nil {
		return nil, err
	}
	var args []string
	if flag != "" {
		args = []string{"-" + strings.TrimPrefix(flag, "-")}
	}
	return d.run.Run(ctx, runner.Olsnodes, runner.Request{Home: home, Args: args})
}

// Nodes maps node names to node numbers (olsnodes -n).
func (d *Discovery) Nodes(ctx context.Context) (map[string]string, error) {
	return d.pairs(ctx, "n")
}

// VIPs maps node names to virtual IP names (olsnodes -i).
func (d *Discovery) VIPs(ctx context.Context) (map[string]string, error) {
	return d.pairs(ctx, "i")
}

// Name returns the cluster name (olsnodes -c).
func (d *Discovery) Name(ctx context.Context) (string, error) {
	res, err := d.Raw(ctx, "c")
	if err != nil {
		return "", err
	}
	if res.ExitStatus != 0 {
		d.failed(res)
		return "", nil
	}
	return strings.TrimSpace(res.Output), nil
}

// pairs parses "name value" lines. A nonzero exit yields an empty map.
func (d *Discovery) pairs(ctx context.Context, flag string) (map[string]string, error) {
	res, err := d.Raw(ctx, flag)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if res.ExitStatus != 0 {
		d.failed(res)
		return out, nil
	}
	for _, line := range strings.Split(res.Output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out[fields[0]] = fields[1]
	}
	return out, nil
}

func (d *Discovery) failed(res *runner.Result) {
	d.logger.Debug("olsnodes failed",
		zap.String("run_id", res.RunID),
		zap.Strings("command", res.Display),
		zap.Int("exit_status", res.ExitStatus),
		zap.String("output", res.Output))
}

// Status is a combined view of the cluster.
type Status struct {
	Name  string
	Nodes map[string]string
	VIPs  map[string]string
}

// Status runs the name, node and VIP queries concurrently.
func (d *Discovery) Status(ctx context.Context) (*Status, error) {
	var st Status
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, err := d.Name(gctx)
		st.Name = name
		return err
	})
	g.Go(func() error {
		nodes, err := d.Nodes(gctx)
		st.Nodes = nodes
		return err
	})
	g.Go(func() error {
		vips, err := d.VIPs(gctx)
		st.VIPs = vips
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}
