// Package driven defines the outbound ports of the sync engine: the remote
// content API, the per-entity store facades, the file downloader, the
// external video host and the device constraint monitor. Adapters implement
// these interfaces; services depend only on them.
package driven
