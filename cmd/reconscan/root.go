package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/reconscan/internal/worker"
)

// Process exit codes.
const (
	exitOK            = 0
	exitClassNotFound = 1
	exitFailure       = 255
)

// NewRootCmd creates the root command for reconscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconscan",
		Short: "Recursive reconnaissance with pluggable workers",
		Long: `reconscan discovers infrastructure related to a set of root values.

Workers accept values of some types (domain, host, ip, open_port, website, ...)
and emit new values. Every new value that is in scope of a root is dispatched
to the workers accepting its type, until no worker finds anything new.

Built-in workers cover DNS, TCP port scanning, service identification,
TLS certificates and HTTP probing. Additional workers are defined in YAML
files that wrap external commands.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewWorkerCmd())
	cmd.AddCommand(NewWorkersCmd())
	cmd.AddCommand(NewRunsCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return exitCode(err)
}

// exitCode maps an error to the process exit code: 1 when a worker could
// not be found, 255 for every other failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, worker.ErrClassNotFound):
		return exitClassNotFound
	default:
		return exitFailure
	}
}
