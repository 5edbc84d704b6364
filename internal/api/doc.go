// Package api serves the HTTP surface: audio uploads, task and result
// queries, aggregate stats, and a health probe.
package api
