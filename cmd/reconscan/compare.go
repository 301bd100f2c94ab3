package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/reconscan/internal/database"
	"github.com/nao1215/reconscan/internal/value"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [flags] OLDER_RUN NEWER_RUN",
		Short: "Compare the values of two saved runs",
		Long: `Compare shows the values found by NEWER_RUN but not by OLDER_RUN, and the
values OLDER_RUN found that NEWER_RUN did not. Values are matched by identity.

Run ids can be abbreviated to any unique prefix. Use 'reconscan runs' to list
the saved runs.

Examples:
  # Compare two runs
  reconscan compare 1f0c2a9e 7b3d9e41

  # Output the comparison as JSON
  reconscan compare --json 1f0c2a9e 7b3d9e41`,
		Args: cobra.ExactArgs(2),
		RunE: runCompareCmd,
	}

	cmd.Flags().String("db-dir", "", "Database directory (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false, "Output the comparison in JSON format")
	cmd.Flags().Bool("no-color", false, "Disable colored output")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return err
	}
	if noColor {
		color.NoColor = true
	}

	db, err := openResultDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	older, err := db.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	newer, err := db.GetRun(ctx, args[1])
	if err != nil {
		return err
	}
	diff, err := db.CompareRuns(ctx, older.ID, newer.ID)
	if err != nil {
		return fmt.Errorf("failed to compare runs: %w", err)
	}

	if jsonOutput {
		return outputComparisonJSON(cmd.OutOrStdout(), older, newer, diff)
	}
	outputComparisonText(cmd.OutOrStdout(), older, newer, diff)
	return nil
}

// comparisonRun is a run in the JSON comparison output.
type comparisonRun struct {
	ID      string    `json:"id"`
	Started time.Time `json:"started"`
	Status  string    `json:"status"`
	Roots   []string  `json:"roots"`
}

// comparisonResult is the JSON comparison output.
type comparisonResult struct {
	Older     comparisonRun     `json:"older"`
	Newer     comparisonRun     `json:"newer"`
	Added     []json.RawMessage `json:"added"`
	Removed   []json.RawMessage `json:"removed"`
	Unchanged int               `json:"unchanged"`
}

func toComparisonRun(r *database.Run) comparisonRun {
	return comparisonRun{ID: r.ID, Started: r.Started, Status: string(r.Status), Roots: r.Roots}
}

func marshalValues(values []value.Value) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		data, err := value.Marshal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// outputComparisonJSON writes the comparison as a JSON document.
func outputComparisonJSON(out io.Writer, older, newer *database.Run, diff *database.Diff) error {
	added, err := marshalValues(diff.Added)
	if err != nil {
		return err
	}
	removed, err := marshalValues(diff.Removed)
	if err != nil {
		return err
	}
	result := comparisonResult{
		Older:     toComparisonRun(older),
		Newer:     toComparisonRun(newer),
		Added:     added,
		Removed:   removed,
		Unchanged: diff.Unchanged,
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputComparisonText writes the comparison for a terminal.
func outputComparisonText(out io.Writer, older, newer *database.Run, diff *database.Diff) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	bold.Fprintln(out, "Run Comparison")
	fmt.Fprintf(out, "Older run: %s  %s  (%s)\n", shortID(older.ID), older.Started.Local().Format(timeFormat), older.Status)
	fmt.Fprintf(out, "Newer run: %s  %s  (%s)\n", shortID(newer.ID), newer.Started.Local().Format(timeFormat), newer.Status)

	if len(diff.Added) > 0 {
		fmt.Fprintf(out, "\nNew Values (%d):\n", len(diff.Added))
		for _, v := range diff.Added {
			green.Fprintf(out, "  [+] %-14s %s\n", v.Kind(), v)
		}
	}
	if len(diff.Removed) > 0 {
		fmt.Fprintf(out, "\nRemoved Values (%d):\n", len(diff.Removed))
		for _, v := range diff.Removed {
			red.Fprintf(out, "  [-] %-14s %s\n", v.Kind(), v)
		}
	}
	if len(diff.Added) == 0 && len(diff.Removed) == 0 {
		fmt.Fprintln(out, "\nNo differences.")
	}
	fmt.Fprintf(out, "\n%d value(s) unchanged\n", diff.Unchanged)
}
