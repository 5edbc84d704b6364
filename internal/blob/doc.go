// Package blob stores raw audio payloads in BadgerDB keyed by generated ids.
//
// Upload handlers put bytes here and enqueue a task carrying the returned
// blob id; the worker resolves the id back to bytes before feature
// extraction. Blob ids are opaque handles; nothing outside this package
// depends on their format.
package blob
