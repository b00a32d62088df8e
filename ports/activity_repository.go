package ports

import (
	"context"

	"goviper/domain/activity"
	"goviper/domain/core"
)

// ActivityRepository persists completed activity runs
type ActivityRepository interface {
	SaveRun(ctx context.Context, run *activity.Run) error
	GetRunScores(ctx context.Context, id core.RunID) (*activity.RunSummary, []activity.Score, error)
	ListRuns(ctx context.Context, limit int) ([]activity.RunSummary, error)
}
