package worker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/nao1215/reconscan/internal/value"
)

// valuePlaceholder in a command argument is replaced by the input value.
const valuePlaceholder = "{value}"

// maxOutputLine is the longest stdout line an ExecWorker accepts.
const maxOutputLine = 1 << 20

// ExecWorker runs an external command for every input value. The input
// record is written to stdin as JSON and each stdout line becomes a value:
// lines starting with "{" are decoded as records, other lines are parsed as
// the first declared output type.
type ExecWorker struct {
	desc    Descriptor
	command []string
	dir     string
	env     []string
}

// ExecOption configures an ExecWorker.
type ExecOption func(*ExecWorker)

// WithDir sets the working directory of the command.
func WithDir(dir string) ExecOption {
	return func(w *ExecWorker) {
		w.dir = dir
	}
}

// WithEnv appends environment variables in "KEY=value" form.
func WithEnv(env ...string) ExecOption {
	return func(w *ExecWorker) {
		w.env = append(w.env, env...)
	}
}

// NewExecWorker creates a worker that runs command.
func NewExecWorker(desc Descriptor, command []string, opts ...ExecOption) *ExecWorker {
	w := &ExecWorker{
		desc:    desc,
		command: command,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Descriptor implements Worker.
func (w *ExecWorker) Descriptor() Descriptor {
	return w.desc
}

// Process implements Worker.
func (w *ExecWorker) Process(ctx context.Context, v value.Value, emit Emit) error {
	input, err := value.Marshal(v)
	if err != nil {
		return err
	}

	args := make([]string, len(w.command))
	for i, arg := range w.command {
		args[i] = strings.ReplaceAll(arg, valuePlaceholder, v.String())
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // command comes from a worker file chosen by the user
	cmd.Dir = w.dir
	cmd.Env = append(os.Environ(), w.env...)
	cmd.Env = append(cmd.Env,
		"RECON_VALUE="+v.String(),
		"RECON_VALUE_TYPE="+string(v.Kind()),
	)
	cmd.Stdin = bytes.NewReader(append(input, '\n'))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker %s: %w", w.desc.ID, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("worker %s: failed to start %s: %w", w.desc.ID, args[0], err)
	}

	var parseErr error
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out, err := w.parseLine(line)
		if err != nil {
			parseErr = errors.Join(parseErr, err)
			continue
		}
		emit(out)
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout) //nolint:errcheck // drain so the command can exit
	}

	if err := cmd.Wait(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("worker %s: %s: %w: %s", w.desc.ID, args[0], err, msg)
		}
		return fmt.Errorf("worker %s: %s: %w", w.desc.ID, args[0], err)
	}
	return errors.Join(scanErr, parseErr)
}

func (w *ExecWorker) parseLine(line string) (value.Value, error) {
	if strings.HasPrefix(line, "{") {
		return value.Unmarshal([]byte(line))
	}
	return value.ParseText(w.desc.Outputs[0], line)
}
