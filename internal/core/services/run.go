package services

import (
	"context"
	"errors"

	"github.com/classtow/classtow-cli/internal/core/ports/driving"
	"github.com/classtow/classtow-cli/internal/logger"
)

// Ensure SyncRunner implements the interface.
var _ driving.SyncRunner = (*SyncRunner)(nil)

// SyncRunner composes one full sync run: video metadata enumeration,
// course content sync, then the video download pass for the media the
// content actually references.
type SyncRunner struct {
	orchestrator driving.SyncOrchestrator
	videos       driving.VideoSyncer
}

// NewSyncRunner creates a new run composition.
func NewSyncRunner(orchestrator driving.SyncOrchestrator, videos driving.VideoSyncer) *SyncRunner {
	return &SyncRunner{
		orchestrator: orchestrator,
		videos:       videos,
	}
}

// RunSync executes one run over the given courses.
func (r *SyncRunner) RunSync(ctx context.Context, courseIDs []int64) error {
	if len(courseIDs) == 0 {
		logger.Info("Nothing selected for sync")
		return nil
	}

	// 1. Enumerate video metadata up front so content rewriting can
	// recognise referenced media. Video failures never block content.
	metadata, err := r.videos.FetchMetadata(ctx, courseIDs)
	if err != nil {
		logger.Warn("Video metadata unavailable: %v", err)
		metadata = nil
	}

	// 2. Sync course content
	contentErr := r.orchestrator.SyncCourses(ctx, courseIDs, metadata)

	// 3. Download the videos the rewritten content references
	var videoErr error
	if len(metadata) > 0 {
		videoErr = r.videos.SyncVideos(ctx, metadata, r.orchestrator.MediaIDsToSync())
	}

	return errors.Join(contentErr, videoErr)
}
