package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/reconscan/internal/worker"
)

// NewWorkersCmd creates the workers command.
func NewWorkersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "List the available workers",
		Long: `Workers lists the built-in workers and the workers loaded from worker
definition files, with their intensity and the value types they accept and
produce.

Examples:
  # List every worker
  reconscan workers

  # Include workers defined in a file
  reconscan workers --worker-file subfinder.yaml`,
		Args: cobra.NoArgs,
		RunE: runWorkersCmd,
	}

	addNetworkFlags(cmd)
	return cmd
}

// runWorkersCmd executes the workers command.
func runWorkersCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd)

	// listing never dials, so the direct client is enough
	cfg.UseTor = false
	cfg.ProxyAddress = ""
	client, stop, err := newTransport(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer stop()

	reg, err := newRegistry(cfg, client, logger)
	if err != nil {
		return err
	}
	workers, err := reg.Workers()
	if err != nil {
		return err
	}
	return renderWorkers(cmd.OutOrStdout(), workers)
}

// renderWorkers writes one table row per worker.
func renderWorkers(out io.Writer, workers []worker.Worker) error {
	table := tablewriter.NewWriter(out)
	table.Header("ID", "Intensity", "Accepts", "Outputs", "Summary")
	for _, w := range workers {
		d := w.Descriptor()
		if err := table.Append([]string{
			d.ID,
			d.Intensity.String(),
			joinKinds(d.Accepts),
			joinKinds(d.Outputs),
			d.Summary,
		}); err != nil {
			return fmt.Errorf("failed to render workers: %w", err)
		}
	}
	return table.Render()
}
