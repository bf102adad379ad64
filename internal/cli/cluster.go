package cli

// This file implements the "cluster" command, which reports cluster
// membership through olsnodes in the grid infrastructure home.

import (
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbakit/internal/cluster"
)

// ClusterManager handles cluster discovery.
type ClusterManager struct {
	session *Session
	logger  *zap.Logger
}

// NewClusterManager creates a ClusterManager with the given dependencies.
func NewClusterManager(session *Session, logger *zap.Logger) *ClusterManager {
	return &ClusterManager{session: session, logger: logger}
}

// DefaultClusterManager returns a ClusterManager using the default session.
func DefaultClusterManager(logger *zap.Logger) *ClusterManager {
	return NewClusterManager(DefaultSession(logger), logger)
}

// NewClusterCmd returns the cluster subcommand.
func NewClusterCmd(logger *zap.Logger) *cobra.Command {
	return NewClusterCmdWithManager(DefaultClusterManager(logger))
}

// NewClusterCmdWithManager returns the cluster subcommand using the provided manager.
func NewClusterCmdWithManager(mgr *ClusterManager) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster membership",
		Long:  "Query node names, node numbers, VIPs and the cluster name from the grid home of the +ASM instance",
		Args:  cobra.ArbitraryArgs,
		RunE:  groupRunE,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "nodes",
		Short: "List nodes and their node numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.Pairs(cmd, "nodes")
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "vips",
		Short: "List nodes and their VIPs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.Pairs(cmd, "vips")
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "name",
		Short: "Print the cluster name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.Name(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show name, nodes and VIPs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.Status(cmd)
		},
	})

	return cmd
}

func (m *ClusterManager) discovery(cmd *cobra.Command) (*cluster.Discovery, error) {
	r, err := m.session.Runner(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := m.session.Config(cmd)
	if err != nil {
		return nil, err
	}
	return cluster.New(r, cfg.OratabCandidates(), m.logger), nil
}

// Pairs prints "nodes" (node, number) or "vips" (node, VIP), one per line.
func (m *ClusterManager) Pairs(cmd *cobra.Command, what string) error {
	d, err := m.discovery(cmd)
	if err != nil {
		Error("Failed to load configuration")
		logStructuredError(m.logger, err, "Failed to load configuration")
		return err
	}
	query := d.Nodes
	if what == "vips" {
		query = d.VIPs
	}
	pairs, err := query(contextOf(cmd))
	if err != nil {
		Error("Failed to query cluster " + what)
		logStructuredError(m.logger, err, "Failed to query cluster")
		return err
	}
	out := NewPrinter(cmd.OutOrStdout())
	for _, node := range sortedKeys(pairs) {
		out.Printf("%s\t%s\n", node, pairs[node])
	}
	return nil
}

// Name prints the cluster name.
func (m *ClusterManager) Name(cmd *cobra.Command) error {
	d, err := m.discovery(cmd)
	if err != nil {
		Error("Failed to load configuration")
		logStructuredError(m.logger, err, "Failed to load configuration")
		return err
	}
	name, err := d.Name(contextOf(cmd))
	if err != nil {
		Error("Failed to query cluster name")
		logStructuredError(m.logger, err, "Failed to query cluster name")
		return err
	}
	if name != "" {
		NewPrinter(cmd.OutOrStdout()).Println(name)
	}
	return nil
}

// Status prints a table of nodes with their numbers and VIPs.
func (m *ClusterManager) Status(cmd *cobra.Command) error {
	d, err := m.discovery(cmd)
	if err != nil {
		Error("Failed to load configuration")
		logStructuredError(m.logger, err, "Failed to load configuration")
		return err
	}
	out := NewPrinter(cmd.OutOrStdout())
	stop := out.SpinnerStart("Querying olsnodes")
	st, err := d.Status(contextOf(cmd))
	stop(err == nil, "Cluster queried")
	if err != nil {
		Error("Failed to query cluster status")
		logStructuredError(m.logger, err, "Failed to query cluster status")
		return err
	}

	out.Printf("Cluster: %s\n", st.Name)
	rows := [][]string{{"NODE", "NUMBER", "VIP"}}
	for _, node := range sortedKeys(st.Nodes) {
		rows = append(rows, []string{node, st.Nodes[node], st.VIPs[node]})
	}
	if len(rows) == 1 {
		Warn("No nodes reported")
		return nil
	}
	out.Table(rows)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
