package query

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-layerexport/export"
)

// RunHistoryHandler returns tracked attempts, newest first.
type RunHistoryHandler struct {
	Tracker export.ProgressTracker
}

func NewRunHistoryHandler(tracker export.ProgressTracker) *RunHistoryHandler {
	return &RunHistoryHandler{Tracker: tracker}
}

func (h *RunHistoryHandler) Query(ctx context.Context, msg RunHistory) ([]export.AttemptRecord, error) {
	if h == nil || h.Tracker == nil {
		return nil, errors.New("progress tracker is required", errors.CategoryInternal).
			WithTextCode("TRACKER_REQUIRED")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return h.Tracker.List(ctx, msg.Filter)
}
