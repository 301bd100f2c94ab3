package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/spf13/cobra"

	"github.com/nao1215/reconscan/internal/config"
	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// NewWorkerCmd creates the worker command.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker [--file FILE | NAME] [VALUE...]",
		Short: "Load a single worker and optionally run it on values",
		Long: `Worker loads one worker, either a registered worker by NAME or a worker
definition file given with --file, and prints its descriptor.

When values are given, the worker runs once on each of them and every produced
value is printed as a JSON record, one per line. A VALUE is a JSON record or
plain text parsed as the first type the worker accepts.

Exit status is 0 on success, 1 when the worker does not exist and 255 for any
other failure.

Examples:
  # Show a built-in worker
  reconscan worker dns/lookup

  # Run it once
  reconscan worker dns/lookup example.com

  # Try a worker definition file
  reconscan worker --file subfinder.yaml example.com

  # Pass a value record
  reconscan worker net/port_scan '{"type":"ip","address":"192.0.2.10"}'`,
		Args: cobra.ArbitraryArgs,
		RunE: runWorkerCmd,
	}

	addNetworkFlags(cmd)
	cmd.Flags().StringP("file", "f", "", "Worker definition file to load instead of NAME")

	return cmd
}

// runWorkerCmd executes the worker command.
func runWorkerCmd(cmd *cobra.Command, args []string) error {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	if file == "" && len(args) == 0 {
		return fmt.Errorf("%w: specify a worker NAME or --file", errUsage)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateOptions(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runWorker(ctx, cfg, file, args, cmd.OutOrStdout(), logger)
}

// runWorker loads the worker and runs it on the given values.
func runWorker(ctx context.Context, cfg *config.Config, file string, args []string, out io.Writer, logger *slog.Logger) error {
	client, stop, err := newTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stop()

	reg, err := newRegistry(cfg, client, logger)
	if err != nil {
		return err
	}

	var (
		w      worker.Worker
		inputs []string
	)
	if file != "" {
		w, err = reg.LoadFromSource(file)
		inputs = args
	} else {
		w, err = reg.Lookup(args[0])
		inputs = args[1:]
	}
	if err != nil {
		return err
	}

	desc := w.Descriptor()
	printDescriptor(out, desc)

	for _, raw := range inputs {
		v, err := parseWorkerInput(desc, raw)
		if err != nil {
			return err
		}
		if !desc.AcceptsKind(v.Kind()) {
			return fmt.Errorf("%w: worker %s does not accept %s values", errUsage, desc.ID, v.Kind())
		}
		fmt.Fprintf(out, "\n# %s %s\n", v.Kind(), v)
		if err := invokeOnce(ctx, w, v, cfg, out, logger); err != nil {
			return fmt.Errorf("worker %s failed on %s: %w", desc.ID, v, err)
		}
	}
	return nil
}

// invokeOnce runs w on v with the configured timeout and prints every
// declared output as a JSON record.
func invokeOnce(ctx context.Context, w worker.Worker, v value.Value, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	desc := w.Descriptor()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var (
		mu       sync.Mutex
		writeErr error
	)
	emit := func(produced value.Value) {
		if produced == nil {
			return
		}
		if !desc.OutputsKind(produced.Kind()) {
			logger.Warn("dropping undeclared output",
				"worker", desc.ID,
				"error", &worker.ContractViolationError{WorkerID: desc.ID, Kind: produced.Kind()},
			)
			return
		}
		data, err := value.Marshal(produced)
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			_, err = fmt.Fprintln(out, string(data))
		}
		if err != nil && writeErr == nil {
			writeErr = err
		}
	}

	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = w.Process(ctx, v, emit)
	})
	if r := catcher.Recovered(); r != nil {
		return r.AsError()
	}
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return writeErr
}

// parseWorkerInput turns a command line VALUE into a Value: a JSON record,
// or text parsed as the first accepted kind that can represent it.
func parseWorkerInput(desc worker.Descriptor, raw string) (value.Value, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		v, err := value.Unmarshal([]byte(trimmed))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}
		return v, nil
	}

	var firstErr error
	for _, k := range desc.Accepts {
		v, err := value.ParseText(k, trimmed)
		if err == nil {
			return v, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("%w: cannot parse %q for worker %s: %w", errUsage, raw, desc.ID, firstErr)
}

// printDescriptor writes the worker metadata.
func printDescriptor(out io.Writer, desc worker.Descriptor) {
	fmt.Fprintf(out, "ID:        %s\n", desc.ID)
	if desc.Summary != "" {
		fmt.Fprintf(out, "Summary:   %s\n", desc.Summary)
	}
	fmt.Fprintf(out, "Intensity: %s\n", desc.Intensity)
	fmt.Fprintf(out, "Accepts:   %s\n", joinKinds(desc.Accepts))
	fmt.Fprintf(out, "Outputs:   %s\n", joinKinds(desc.Outputs))
	if desc.Description != "" {
		fmt.Fprintf(out, "\n%s\n", desc.Description)
	}
}

func joinKinds(kinds []value.Kind) string {
	if len(kinds) == 0 {
		return "-"
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
