package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/reconscan/internal/config"
	"github.com/nao1215/reconscan/internal/database"
	"github.com/nao1215/reconscan/internal/engine"
	"github.com/nao1215/reconscan/internal/report"
	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// errRunCancelled is returned after a cancelled run has printed its partial
// results.
var errRunCancelled = errors.New("run cancelled")

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] TARGET...",
		Short: "Run the workers recursively over root values",
		Long: `Run seeds the engine with root values and dispatches every discovered value
to the workers accepting its type, until nothing new is found.

A TARGET is parsed as an IP address when it is one, as a website when it has a
scheme (https://example.com:8443), and as a domain otherwise. Roots of any type
can be given as value records in a YAML or JSON seed file.

Only values in scope of a root are kept: hosts under a root domain, ports of a
root address, URLs of a root website, and so on.

Examples:
  # Enumerate a domain with every built-in worker
  reconscan run example.com

  # Passive workers only, as JSON lines
  reconscan run --max-intensity passive --json example.com

  # Limit active workers and stop two levels below the roots
  reconscan run --intensity-limit active=2 --max-depth 2 example.com

  # Scan through Tor and save the run for later comparison
  reconscan run --tor --save example.onion

Seed file example:
  - example.com
  - {type: ip, address: 192.0.2.10}
  - {type: website, scheme: https, host: example.com, port: 8443}`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	addNetworkFlags(cmd)

	// Engine flags
	cmd.Flags().IntP("max-concurrency", "n", config.DefaultMaxConcurrency,
		"Maximum number of invocations running at once")
	cmd.Flags().String("max-intensity", "aggressive",
		"Exclude workers above this intensity (passive, active, aggressive)")
	cmd.Flags().StringSlice("intensity-limit", nil,
		"Concurrent invocations per intensity, e.g. active=2 (repeatable)")
	cmd.Flags().StringSlice("rate-limit", nil,
		"Invocations per second per intensity, e.g. aggressive=0.5 (repeatable)")
	cmd.Flags().IntP("max-depth", "d", 0,
		"Do not dispatch values this many steps below the roots (0 = unlimited)")
	cmd.Flags().StringSliceP("workers", "w", nil,
		"Comma separated worker ids to run (default: all)")
	cmd.Flags().StringP("seeds", "s", "",
		"YAML or JSON file with root values")

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Write results as JSON lines")
	cmd.Flags().StringP("markdown", "m", "",
		"Write a Markdown report of the run to this file")
	cmd.Flags().StringP("output", "o", "",
		"Write results to this file instead of stdout (creates directories if needed)")
	cmd.Flags().Bool("save", false,
		"Save the run to the database for 'runs' and 'compare'")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runRun(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildRunConfig creates a Config from the configuration file and the flags.
func buildRunConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("max-concurrency") {
		if cfg.MaxConcurrency, err = flags.GetInt("max-concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-intensity") {
		raw, err := flags.GetString("max-intensity")
		if err != nil {
			return nil, err
		}
		if cfg.MaxIntensity, err = worker.ParseIntensity(raw); err != nil {
			return nil, err
		}
	}
	if flags.Changed("intensity-limit") {
		raw, err := flags.GetStringSlice("intensity-limit")
		if err != nil {
			return nil, err
		}
		limits, err := config.ParseIntensityLimits(raw)
		if err != nil {
			return nil, err
		}
		for tier, n := range limits {
			cfg.IntensityLimits[tier] = n
		}
	}
	if flags.Changed("rate-limit") {
		raw, err := flags.GetStringSlice("rate-limit")
		if err != nil {
			return nil, err
		}
		limits, err := config.ParseRateLimits(raw)
		if err != nil {
			return nil, err
		}
		for tier, r := range limits {
			cfg.RateLimits[tier] = r
		}
	}
	if flags.Changed("max-depth") {
		if cfg.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetStringSlice("workers"); err != nil {
			return nil, err
		}
	}

	if cfg.SeedFile, err = flags.GetString("seeds"); err != nil {
		return nil, err
	}
	if cfg.JSONOutput, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownFile, err = flags.GetString("markdown"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Targets = args
	return cfg, nil
}

// engineOptions translates the configuration into engine options.
func engineOptions(cfg *config.Config, logger *slog.Logger) []engine.Option {
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMaxConcurrency(cfg.MaxConcurrency),
		engine.WithMaxIntensity(cfg.MaxIntensity),
		engine.WithTimeout(cfg.Timeout),
		engine.WithMaxDepth(cfg.MaxDepth),
		engine.WithObserver(func(inv worker.Invocation) {
			logger.Debug("worker finished",
				"worker", inv.WorkerID,
				"value", inv.Input.String(),
				"state", inv.State.String(),
				"emitted", inv.Emitted,
				"duration", inv.Duration(),
			)
		}),
	}
	for tier, n := range cfg.IntensityLimits {
		opts = append(opts, engine.WithIntensityLimit(tier, n))
	}
	for tier, r := range cfg.RateLimits {
		opts = append(opts, engine.WithRateLimit(tier, r))
	}
	return opts
}

// loadRoots parses the command line targets and the seed file.
func loadRoots(cfg *config.Config) ([]value.Value, error) {
	var roots []value.Value
	for _, t := range cfg.Targets {
		v, err := value.ParseTarget(t)
		if err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", t, err)
		}
		roots = append(roots, v)
	}
	if cfg.SeedFile != "" {
		seeds, err := loadSeedFile(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		roots = append(roots, seeds...)
	}
	return roots, nil
}

// loadSeedFile reads a YAML or JSON list whose items are target strings or
// value records.
func loadSeedFile(path string) ([]value.Value, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided seed path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var items []any
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	roots := make([]value.Value, 0, len(items))
	for i, item := range items {
		var (
			v   value.Value
			err error
		)
		switch x := item.(type) {
		case string:
			v, err = value.ParseTarget(x)
		case map[string]any:
			v, err = value.FromRecord(x)
		default:
			err = fmt.Errorf("%w: unsupported item %v", value.ErrInvalidValue, item)
		}
		if err != nil {
			return nil, fmt.Errorf("seed file %s, item %d: %w", path, i+1, err)
		}
		roots = append(roots, v)
	}
	return roots, nil
}

// runRun executes a run and writes its results.
func runRun(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) (err error) {
	roots, err := loadRoots(cfg)
	if err != nil {
		return err
	}

	client, stop, err := newTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stop()

	reg, err := newRegistry(cfg, client, logger)
	if err != nil {
		return err
	}
	workers, err := reg.Workers(cfg.Workers...)
	if err != nil {
		return err
	}
	eng, err := engine.New(workers, engineOptions(cfg, logger)...)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cfg.OutputFile, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var writers []report.Writer
	if cfg.JSONOutput {
		writers = append(writers, report.NewJSONWriter(out, report.WithParent()))
	} else {
		writers = append(writers, report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose)))
	}

	if cfg.MarkdownFile != "" {
		mdOut, closeMD, mdErr := openOutput(cfg.MarkdownFile, nil)
		if mdErr != nil {
			return mdErr
		}
		defer func() {
			if cerr := closeMD(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		writers = append(writers, report.NewMarkdownWriter(mdOut))
	}

	var runWriter *database.RunWriter
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		// the run must be recorded even when ctx is cancelled
		dbCtx := context.WithoutCancel(ctx)
		ids := make([]string, 0, len(eng.Workers()))
		for _, w := range eng.Workers() {
			ids = append(ids, w.Descriptor().ID)
		}
		run, err := db.BeginRun(dbCtx, roots, ids)
		if err != nil {
			return err
		}
		runWriter = db.NewRunWriter(dbCtx, run)
		writers = append(writers, runWriter)
	}

	sink := report.NewMultiWriter(writers...)
	summary, err := eng.Run(ctx, roots, sink)
	if err != nil {
		return err
	}
	if err := sink.WriteSummary(summary); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if runWriter != nil {
		fmt.Fprintf(stderr, "Saved run %s\n", runWriter.Run().ID)
	}
	if summary.Cancelled {
		return fmt.Errorf("%w after %d value(s): %w", errRunCancelled, summary.Discovered, context.Cause(ctx))
	}
	return nil
}

// openOutput opens path for writing, creating parent directories. An empty
// path selects fallback. The returned function closes the file and reports
// a failed close.
func openOutput(path string, fallback io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return fallback, func() error { return nil }, nil
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() error {
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", path, err)
		}
		return nil
	}, nil
}
