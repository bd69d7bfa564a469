// Package daemon provides the configuration orchestrator for deskrcd.
// It composes the binding table, output arranger, status sampler and
// launcher against a host, installs the device and lifecycle hooks, and
// replaces the whole configuration generation on reload.
//
// Every exported method except New must be called on the host's dispatch
// thread.
package daemon
