package worker

import (
	"errors"
	"testing"

	"github.com/nao1215/reconscan/internal/value"
)

// TestParseIntensity tests tier parsing and text round trips.
func TestParseIntensity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Intensity
		wantErr bool
	}{
		{in: "passive", want: Passive},
		{in: "Active", want: Active},
		{in: " aggressive ", want: Aggressive},
		{in: "loud", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseIntensity(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIntensity) {
					t.Errorf("expected ErrInvalidIntensity, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseIntensity(%q) = %v, want %v", tt.in, got, tt.want)
			}

			text, err := got.MarshalText()
			if err != nil {
				t.Fatalf("MarshalText() error: %v", err)
			}
			var back Intensity
			if err := back.UnmarshalText(text); err != nil {
				t.Fatalf("UnmarshalText() error: %v", err)
			}
			if back != got {
				t.Errorf("round trip = %v, want %v", back, got)
			}
		})
	}
}

// TestIntensityOrder tests that tiers compare in increasing order.
func TestIntensityOrder(t *testing.T) {
	t.Parallel()

	if !(Passive < Active && Active < Aggressive) {
		t.Error("expected passive < active < aggressive")
	}
	if len(Intensities()) != 3 {
		t.Errorf("expected 3 tiers, got %d", len(Intensities()))
	}
}

// TestDescriptorValidate tests descriptor validation.
func TestDescriptorValidate(t *testing.T) {
	t.Parallel()

	valid := Descriptor{
		ID:        "test/valid",
		Accepts:   []value.Kind{value.KindDomain},
		Outputs:   []value.Kind{value.KindHost},
		Intensity: Passive,
	}

	tests := []struct {
		name    string
		mutate  func(d *Descriptor)
		wantErr error
	}{
		{name: "valid", mutate: func(_ *Descriptor) {}},
		{name: "empty id", mutate: func(d *Descriptor) { d.ID = " " }, wantErr: ErrEmptyWorkerID},
		{name: "no accepts", mutate: func(d *Descriptor) { d.Accepts = nil }, wantErr: ErrNoAcceptedTypes},
		{name: "unknown output", mutate: func(d *Descriptor) { d.Outputs = []value.Kind{"asn"} }, wantErr: value.ErrUnknownType},
		{name: "bad intensity", mutate: func(d *Descriptor) { d.Intensity = Intensity(7) }, wantErr: ErrInvalidIntensity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := valid
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestDescriptorKinds tests accept and output membership.
func TestDescriptorKinds(t *testing.T) {
	t.Parallel()

	d := Descriptor{
		ID:      "net/service_id",
		Accepts: []value.Kind{value.KindOpenPort},
		Outputs: []value.Kind{value.KindNameserver, value.KindMailserver, value.KindWebsite},
	}

	if !d.AcceptsKind(value.KindOpenPort) {
		t.Error("expected open_port to be accepted")
	}
	if d.AcceptsKind(value.KindDomain) {
		t.Error("expected domain not to be accepted")
	}
	if !d.OutputsKind(value.KindWebsite) {
		t.Error("expected website output")
	}
	if d.OutputsKind(value.KindCert) {
		t.Error("expected cert not to be an output")
	}
}

// TestState tests state names and terminal states.
func TestState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    State
		name     string
		terminal bool
	}{
		{StatePending, "pending", false},
		{StateRunning, "running", false},
		{StateCompleted, "completed", true},
		{StateFailed, "failed", true},
		{StateTimedOut, "timed_out", true},
		{StateCancelled, "cancelled", true},
	}
	for _, tt := range tests {
		if tt.state.String() != tt.name {
			t.Errorf("String() = %q, want %q", tt.state.String(), tt.name)
		}
		if tt.state.Terminal() != tt.terminal {
			t.Errorf("%s Terminal() = %v, want %v", tt.name, tt.state.Terminal(), tt.terminal)
		}
	}
}

// TestContractViolationError tests error matching.
func TestContractViolationError(t *testing.T) {
	t.Parallel()

	var err error = &ContractViolationError{WorkerID: "dns/lookup", Kind: value.KindCert}
	if !errors.Is(err, ErrContractViolation) {
		t.Error("expected errors.Is to match ErrContractViolation")
	}
	if err.Error() != "worker dns/lookup emitted undeclared value type cert" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
