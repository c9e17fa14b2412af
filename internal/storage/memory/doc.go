// Package memory provides a process-local key-value store.
//
// It satisfies storage.Store without touching disk, which makes it the
// engine of choice for tests and for runs that must not leave state behind.
// Failure injection hooks let tests exercise storage-error paths.
package memory
