package engine

import "errors"

var (
	// ErrNoRoots is returned when Run is called without any root value.
	ErrNoRoots = errors.New("no root values to scan")

	// ErrNilWorker is returned when New receives a nil worker.
	ErrNilWorker = errors.New("worker is nil")
)
