package jobs

import (
	"time"

	"github.com/robfig/cron/v3"

	applog "totembo/internal/log"
)

// CartReleaser is satisfied by services.CartService.
type CartReleaser interface {
	ReleaseStale(before time.Time) (int, error)
}

// ReleaseAbandonedCarts returns the stock held by carts idle for longer than ttl.
func ReleaseAbandonedCarts(carts CartReleaser, ttl time.Duration, now func() time.Time) func() {
	return func() {
		n, err := carts.ReleaseStale(now().Add(-ttl))
		if err != nil {
			applog.Error(nil, "job.release_carts", err, map[string]any{"released": n})
			return
		}
		applog.Info(nil, "job.release_carts", map[string]any{"released": n, "ttl": ttl.String()})
	}
}

// Scheduler wraps a cron runner; jobs never overlap with themselves.
type Scheduler struct {
	c *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{c: cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))}
}

// Add registers fn under a cron spec ("@every 15m", "0 3 * * *").
func (s *Scheduler) Add(spec, name string, fn func()) error {
	_, err := s.c.AddFunc(spec, fn)
	if err != nil {
		return err
	}
	applog.Printf("[jobs] scheduled %s (%s)", name, spec)
	return nil
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() { <-s.c.Stop().Done() }
