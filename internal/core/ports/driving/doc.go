// Package driving defines the inbound ports of the sync engine: the
// operations the CLI and the background scheduler invoke.
package driving
