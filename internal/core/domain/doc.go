// Package domain contains the core business entities of the offline
// content sync engine: courses and their cached content, per-course sync
// selections, progress records, scheduling definitions and external video
// metadata. It has no dependencies on adapters or services.
package domain
