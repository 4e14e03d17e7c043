package feed

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	appLog "omahashows/internal/log"
)

// Refresher is the part of Store the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Schedule starts a cron runner calling r.Refresh on the given standard
// 5-field expression. Overlapping runs are skipped. The runner stops when ctx is
// canceled; the returned channel closes once the in-flight refresh returned.
func Schedule(ctx context.Context, expr string, r Refresher) (<-chan struct{}, error) {
	if _, err := cron.ParseStandard(expr); err != nil {
		return nil, fmt.Errorf("feed: invalid refresh schedule %q: %w", expr, err)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(expr, func() {
		if err := r.Refresh(ctx); err != nil {
			appLog.Warn("scheduled refresh failed", "err", err.Error())
		}
	}); err != nil {
		return nil, err
	}
	c.Start()
	appLog.Info("refresh scheduled", "expr", expr)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		close(done)
	}()
	return done, nil
}
