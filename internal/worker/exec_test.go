package worker

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/reconscan/internal/value"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("exec worker tests need a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func shellWorker(script string, outputs ...value.Kind) *ExecWorker {
	return NewExecWorker(Descriptor{
		ID:      "test/shell",
		Accepts: []value.Kind{value.KindDomain},
		Outputs: outputs,
	}, []string{"sh", "-c", script})
}

func collect(t *testing.T, w Worker, in value.Value) ([]value.Value, error) {
	t.Helper()
	var got []value.Value
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := w.Process(ctx, in, func(v value.Value) {
		got = append(got, v)
	})
	return got, err
}

// TestExecWorkerProcess tests parsing of command output.
func TestExecWorkerProcess(t *testing.T) {
	t.Parallel()
	requireShell(t)

	t.Run("text and json lines in order", func(t *testing.T) {
		t.Parallel()
		w := shellWorker(`echo "www.{value}"; echo '{"type":"ip","address":"192.0.2.1"}'; echo ""; echo "mail.{value}"`,
			value.KindHost, value.KindIP)
		got, err := collect(t, w, value.NewDomain("example.com"))
		if err != nil {
			t.Fatalf("Process() error: %v", err)
		}
		want := []value.Value{
			value.NewHost("www.example.com"),
			value.NewIP("192.0.2.1", ""),
			value.NewHost("mail.example.com"),
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d values, got %d: %v", len(want), len(got), got)
		}
		for i := range want {
			if !value.Equal(got[i], want[i]) {
				t.Errorf("value %d = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("input json on stdin and environment", func(t *testing.T) {
		t.Parallel()
		w := shellWorker(`read line; case "$line" in *'"name":"example.com"'*) echo "$RECON_VALUE_TYPE.$RECON_VALUE";; esac`,
			value.KindHost)
		got, err := collect(t, w, value.NewDomain("example.com"))
		if err != nil {
			t.Fatalf("Process() error: %v", err)
		}
		if len(got) != 1 || got[0].String() != "domain.example.com" {
			t.Errorf("unexpected output %v", got)
		}
	})

	t.Run("failure keeps values emitted before exit", func(t *testing.T) {
		t.Parallel()
		w := shellWorker(`echo a.example.com; echo b.example.com; echo broken >&2; exit 3`, value.KindHost)
		got, err := collect(t, w, value.NewDomain("example.com"))
		if err == nil {
			t.Fatal("expected error from failing command")
		}
		if !strings.Contains(err.Error(), "broken") {
			t.Errorf("expected stderr in error, got %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 values before failure, got %d", len(got))
		}
	})

	t.Run("unparseable line is reported", func(t *testing.T) {
		t.Parallel()
		w := shellWorker(`echo '{"type":"nope"}'; echo ok.example.com`, value.KindHost)
		got, err := collect(t, w, value.NewDomain("example.com"))
		if err == nil {
			t.Error("expected parse error")
		}
		if len(got) != 1 {
			t.Errorf("expected the valid line to be emitted, got %v", got)
		}
	})

	t.Run("context cancellation stops the command", func(t *testing.T) {
		t.Parallel()
		w := shellWorker(`exec sleep 30`, value.KindHost)
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		start := time.Now()
		err := w.Process(ctx, value.NewDomain("example.com"), func(value.Value) {})
		if err == nil {
			t.Error("expected error after cancellation")
		}
		if time.Since(start) > 10*time.Second {
			t.Error("command was not stopped by context")
		}
	})
}
