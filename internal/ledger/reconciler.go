package ledger

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// StartReconciler retries pending records on a fixed interval until the
// returned scheduler is shut down.
func StartReconciler(l Ledger, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if len(l.Pending()) == 0 {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			report := l.ReconcilePending(ctx)
			log.Info("Reconciled pending matches", "confirmed", len(report.Confirmed), "retrying", len(report.Retrying), "discarded", len(report.Discarded))
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return nil, err
	}
	sched.Start()
	return sched, nil
}
