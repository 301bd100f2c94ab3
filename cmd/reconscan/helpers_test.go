package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/reconscan/internal/config"
)

// wwwWorker answers every domain with its www host.
const wwwWorker = `
worker:
  id: custom/www
  summary: Guesses the www host
  accepts: [domain]
  outputs: [host]
  intensity: passive
  command: ["sh", "-c", "echo www.{value}"]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a configuration that runs only the workers defined in
// workerFiles.
func testConfig(t *testing.T, workerFiles ...string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.DBDir = t.TempDir()
	cfg.DNSServers = []string{"127.0.0.1:1"}
	cfg.WorkerFiles = workerFiles
	return cfg
}
