// Package daemon coordinates the long-running clipsync process.
//
// It wires configuration, the content store, object storage, the external
// tool clients, and the import coordinator into a single lifecycle with
// flock-based locking to prevent multiple instances, and it owns the HTTP
// API server.
//
// Keep orchestration logic here: import mechanics live in pipeline and
// worker while the daemon focuses on startup, shutdown, and wiring.
package daemon
