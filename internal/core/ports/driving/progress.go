package driving

import (
	"context"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

// ProgressObserver is the continuously-observable aggregate progress
// read-model.
type ProgressObserver interface {
	// Current returns the latest aggregate, or nil when both underlying
	// progress sources are empty.
	Current() *domain.AggregateProgress

	// Subscribe delivers recomputed aggregates until ctx is done.
	Subscribe(ctx context.Context) <-chan domain.AggregateProgress
}
