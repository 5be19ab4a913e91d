package tracker

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const refreshTimeout = 2 * time.Minute

// RefreshJob runs Refresh on a schedule. A superseded refresh is not a
// failure.
type RefreshJob struct {
	tracker *Tracker
	ctx     context.Context
}

// NewRefreshJob binds a job to ctx; cancelling ctx aborts in-flight lookups.
func NewRefreshJob(ctx context.Context, t *Tracker) *RefreshJob {
	return &RefreshJob{tracker: t, ctx: ctx}
}

func (j *RefreshJob) Name() string { return "portfolio-refresh" }

func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(j.ctx, refreshTimeout)
	defer cancel()

	_, err := j.tracker.Refresh(ctx)
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	return err
}
