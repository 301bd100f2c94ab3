package worker

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/nao1215/reconscan/internal/value"
)

// Intensity is how intrusive a worker is towards the target.
type Intensity int

// Intensity tiers in increasing order.
const (
	// Passive workers only query third parties (DNS, certificate data).
	Passive Intensity = iota
	// Active workers connect to the target.
	Active
	// Aggressive workers send many requests or potentially disruptive traffic.
	Aggressive
)

// Intensities returns all tiers in increasing order.
func Intensities() []Intensity {
	return []Intensity{Passive, Active, Aggressive}
}

// String returns the tier name.
func (i Intensity) String() string {
	switch i {
	case Passive:
		return "passive"
	case Active:
		return "active"
	case Aggressive:
		return "aggressive"
	default:
		return fmt.Sprintf("intensity(%d)", int(i))
	}
}

// ParseIntensity converts a tier name into an Intensity.
func ParseIntensity(s string) (Intensity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passive":
		return Passive, nil
	case "active":
		return Active, nil
	case "aggressive":
		return Aggressive, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidIntensity, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (i Intensity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Intensity) UnmarshalText(text []byte) error {
	parsed, err := ParseIntensity(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Descriptor is the immutable metadata of a worker.
type Descriptor struct {
	// ID is the namespaced identifier, e.g. "dns/lookup".
	ID string

	// Summary is a one-line description.
	Summary string

	// Description is a longer explanation shown by the worker command.
	Description string

	// Accepts lists the value kinds the worker consumes.
	Accepts []value.Kind

	// Outputs lists the value kinds the worker may emit.
	Outputs []value.Kind

	// Intensity is the worker's tier.
	Intensity Intensity
}

// AcceptsKind reports whether the worker consumes values of kind k.
func (d Descriptor) AcceptsKind(k value.Kind) bool {
	return slices.Contains(d.Accepts, k)
}

// OutputsKind reports whether the worker declared kind k as an output.
func (d Descriptor) OutputsKind(k value.Kind) bool {
	return slices.Contains(d.Outputs, k)
}

// Validate checks that the descriptor is usable by the engine.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrEmptyWorkerID
	}
	if len(d.Accepts) == 0 {
		return fmt.Errorf("worker %s: %w", d.ID, ErrNoAcceptedTypes)
	}
	for _, k := range slices.Concat(d.Accepts, d.Outputs) {
		if !k.Valid() {
			return fmt.Errorf("worker %s: %w: %q", d.ID, value.ErrUnknownType, k)
		}
	}
	if d.Intensity < Passive || d.Intensity > Aggressive {
		return fmt.Errorf("worker %s: %w: %d", d.ID, ErrInvalidIntensity, int(d.Intensity))
	}
	return nil
}

// Emit reports one discovered value. Calls made by a single invocation are
// delivered in order.
type Emit func(value.Value)

// Worker is a probe that turns one input value into zero or more outputs.
type Worker interface {
	// Descriptor returns the worker metadata. It must return the same value
	// on every call.
	Descriptor() Descriptor

	// Process handles one input value, calling emit for every discovery.
	// The input must be treated as read-only. Implementations must return
	// when ctx is done.
	Process(ctx context.Context, v value.Value, emit Emit) error
}

// ProcessFunc is the processing operation of a function-backed worker.
type ProcessFunc func(ctx context.Context, v value.Value, emit Emit) error

type funcWorker struct {
	desc    Descriptor
	process ProcessFunc
}

// New returns a Worker backed by a function.
func New(desc Descriptor, process ProcessFunc) Worker {
	return &funcWorker{desc: desc, process: process}
}

func (w *funcWorker) Descriptor() Descriptor { return w.desc }

func (w *funcWorker) Process(ctx context.Context, v value.Value, emit Emit) error {
	return w.process(ctx, v, emit)
}
