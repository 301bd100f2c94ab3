// Package worker defines the contract between the engine and the probes it
// runs, plus the Registry that resolves workers by id or from a source file.
//
// A worker declares the value kinds it accepts and produces, an intensity
// tier, and a Process method that reports discoveries through an Emit
// callback. Registries are explicit objects built at startup; there is no
// package-level registry.
package worker
