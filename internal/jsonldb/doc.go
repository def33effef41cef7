// Package jsonldb provides a generic JSON-backed document store.
//
// # Overview
//
// The package centers around [Document], which keeps a whole collection as a
// single JSON array in one file. Every [Document.Save] writes a sibling
// "<path>.tmp" file, syncs it and renames it over the target, so a reader only
// ever observes the previous or the next complete version.
//
// # Corruption
//
// [Document.Load] never reports a parse failure. A file that is not valid JSON
// is logged, reset to an empty array and read as empty. Valid JSON that is not
// an array reads as empty and is left alone. Array elements that don't decode
// into the row type are skipped.
//
// # Concurrency: Pessimistic Locking
//
// [Document.Modify] holds the write lock for the entire read-modify-write
// operation, so in-process writers never lose updates. There is no cross-process
// locking: two processes saving concurrently is last-writer-wins.
package jsonldb
