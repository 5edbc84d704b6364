// Package worker runs the classification loop: claim a pending task,
// fetch and decode its audio blob, extract features, classify, and persist
// the result. Task failures are recorded on the task; only loop-level
// faults pace the loop with backoff.
package worker
