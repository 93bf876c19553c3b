// Package memory provides in-memory implementations of the driven store
// ports. Used by tests and for ephemeral runs without a data directory.
package memory
