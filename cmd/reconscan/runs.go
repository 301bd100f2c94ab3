package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nao1215/reconscan/internal/config"
	"github.com/nao1215/reconscan/internal/database"
)

// timeFormat is the layout of timestamps in command output.
const timeFormat = "2006-01-02 15:04:05"

// NewRunsCmd creates the runs command.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs saved in the database",
		Long: `Runs lists the runs saved with 'reconscan run --save', newest first.

Run ids can be abbreviated to any unique prefix in 'reconscan compare'.

Examples:
  # List saved runs
  reconscan runs

  # Use another database directory
  reconscan runs --db-dir ./results`,
		Args: cobra.NoArgs,
		RunE: runRunsCmd,
	}

	cmd.Flags().String("db-dir", "", "Database directory (default: XDG data directory)")
	return cmd
}

// runRunsCmd executes the runs command.
func runRunsCmd(cmd *cobra.Command, _ []string) error {
	db, err := openResultDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No saved runs found in the database.")
		fmt.Fprintln(out, "\nUse 'reconscan run --save <target>' to save a run.")
		return nil
	}
	return renderRuns(out, runs)
}

// openResultDB opens the database selected by --db-dir.
func openResultDB(cmd *cobra.Command) (*database.ResultDB, error) {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = config.XDGDataDir()
	}
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// renderRuns writes one table row per run.
func renderRuns(out io.Writer, runs []database.Run) error {
	table := tablewriter.NewWriter(out)
	table.Header("ID", "Started", "Status", "Roots", "Values")
	for _, r := range runs {
		if err := table.Append([]string{
			shortID(r.ID),
			r.Started.Local().Format(timeFormat),
			string(r.Status),
			strings.Join(r.Roots, ", "),
			strconv.Itoa(r.Discovered),
		}); err != nil {
			return fmt.Errorf("failed to render runs: %w", err)
		}
	}
	return table.Render()
}

// shortID abbreviates a run id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
