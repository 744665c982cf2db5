package ports

import (
	"context"

	"gopairs/domain/core"
	"gopairs/domain/screen"
)

// ScreeningRepository persists screening reports
type ScreeningRepository interface {
	// SaveCointegration stores a cointegration run with its qualifying pairs and skips
	SaveCointegration(ctx context.Context, report *screen.CointegrationReport) error

	// SaveDistance stores a distance run with its ranked pairs and skips
	SaveDistance(ctx context.Context, report *screen.DistanceReport) error

	// ListRuns returns the most recent runs first
	ListRuns(ctx context.Context, limit int) ([]screen.RunSummary, error)

	// GetCointegration loads a stored cointegration report
	GetCointegration(ctx context.Context, runID core.RunID) (*screen.CointegrationReport, error)

	// GetDistance loads a stored distance report
	GetDistance(ctx context.Context, runID core.RunID) (*screen.DistanceReport, error)
}
