// Package queue persists classification tasks, reference fingerprints, and
// results in SQLite and exposes helpers for driving the task lifecycle.
//
// The Store manages database connections, schema initialization, the atomic
// pending→processing claim, heartbeat tracking, stale-task recovery, and the
// terminal done/error transitions. Reference fingerprints are read-only from
// the worker's perspective; they are written by the seeding CLI.
//
// Claiming is the correctness core of the whole pipeline: ClaimNextPending
// performs a single read-modify-write statement so two concurrent workers can
// never own the same task. Tasks are claimed oldest-first on a best-effort
// basis only; strict FIFO across concurrent workers is deliberately not
// guaranteed.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
