// Package builtin provides the probe workers shipped with reconscan and the
// registration step that adds them to a worker.Registry.
//
// DNS workers query the configured servers through Resolver. Every other
// network access goes through a transport.Client so that a proxy or an
// embedded Tor daemon applies to all active probes.
package builtin
