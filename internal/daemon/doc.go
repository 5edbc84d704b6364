// Package daemon owns process lifecycle: single-instance locking and the
// supervision of the worker loop and API server.
package daemon
