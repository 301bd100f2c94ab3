package worker

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/reconscan/internal/value"
)

// SourceProvider loads a single worker definition from an external source.
type SourceProvider interface {
	Load(path string) (Worker, error)
}

// SourceProviderFunc adapts a function to SourceProvider.
type SourceProviderFunc func(path string) (Worker, error)

// Load implements SourceProvider.
func (f SourceProviderFunc) Load(path string) (Worker, error) {
	return f(path)
}

// sourceFile is the YAML layout of a worker file.
type sourceFile struct {
	Worker *sourceWorker `yaml:"worker"`
}

type sourceWorker struct {
	ID          string    `yaml:"id"`
	Summary     string    `yaml:"summary"`
	Description string    `yaml:"description"`
	Accepts     []string  `yaml:"accepts"`
	Outputs     []string  `yaml:"outputs"`
	Intensity   Intensity `yaml:"intensity"`
	Command     []string  `yaml:"command"`
	Dir         string    `yaml:"dir"`
}

// FileSource reads YAML worker files describing an external command.
type FileSource struct {
	execOpts []ExecOption
}

// NewFileSource creates a FileSource. The options are applied to every
// ExecWorker it builds.
func NewFileSource(opts ...ExecOption) *FileSource {
	return &FileSource{execOpts: opts}
}

// Load implements SourceProvider.
func (s *FileSource) Load(path string) (Worker, error) {
	data, err := os.ReadFile(path) //nolint:gosec // worker files are chosen by the user
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}

	var file sourceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	if file.Worker == nil || strings.TrimSpace(file.Worker.ID) == "" {
		return nil, fmt.Errorf("%w: %s defines no worker", ErrClassNotFound, path)
	}

	def := file.Worker
	accepts, err := parseKinds(def.Accepts)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	outputs, err := parseKinds(def.Outputs)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	if len(outputs) == 0 {
		return nil, &LoadError{Source: path, Err: fmt.Errorf("worker %s declares no outputs", def.ID)}
	}
	if len(def.Command) == 0 || def.Command[0] == "" {
		return nil, &LoadError{Source: path, Err: fmt.Errorf("worker %s has no command", def.ID)}
	}

	desc := Descriptor{
		ID:          def.ID,
		Summary:     def.Summary,
		Description: def.Description,
		Accepts:     accepts,
		Outputs:     outputs,
		Intensity:   def.Intensity,
	}
	if err := desc.Validate(); err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}

	opts := append([]ExecOption{WithDir(def.Dir)}, s.execOpts...)
	return NewExecWorker(desc, def.Command, opts...), nil
}

func parseKinds(names []string) ([]value.Kind, error) {
	kinds := make([]value.Kind, 0, len(names))
	for _, name := range names {
		k, err := value.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
