package chat

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/mauv0809/mahjong-club/internal/livequery"
	"github.com/mauv0809/mahjong-club/internal/metrics"
)

// DefaultRefreshInterval is how often a feed reloads its full snapshot.
const DefaultRefreshInterval = 30 * time.Second

// Loader fetches the authoritative list for a feed.
type Loader[T Item] func(ctx context.Context) ([]T, error)

// FeedConfig configures a Feed. Broker may be nil, in which case changes
// are pushed in through Apply.
type FeedConfig[T Item] struct {
	Broker          livequery.Broker
	Topic           string
	Filter          livequery.Filter
	Order           Order
	Load            Loader[T]
	RefreshInterval time.Duration
	Metrics         metrics.Metrics
	// OnUpdate is called with the new list after every change.
	OnUpdate func([]T)
}

// Feed keeps a live ordered list in sync with a topic. Changes are folded in
// through Reduce and a periodic snapshot corrects anything that was missed.
type Feed[T Item] struct {
	cfg     FeedConfig[T]
	mu      sync.RWMutex
	items   []T
	healthy atomic.Bool
	sub     *livequery.Subscription
	sched   gocron.Scheduler
	done    chan struct{}
	once    sync.Once
}

// NewFeed loads the initial snapshot and starts listening. A failed initial
// load leaves the feed empty and unhealthy until the next refresh.
func NewFeed[T Item](ctx context.Context, cfg FeedConfig[T]) (*Feed[T], error) {
	if cfg.Load == nil {
		return nil, fmt.Errorf("feed for %s needs a loader", cfg.Topic)
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	f := &Feed[T]{cfg: cfg, done: make(chan struct{})}
	f.healthy.Store(true)

	if err := f.Refresh(ctx); err != nil {
		log.Warn("Initial feed load failed", "error", err, "topic", cfg.Topic)
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.RefreshInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.RefreshInterval)
			defer cancel()
			if err := f.Refresh(ctx); err != nil {
				log.Warn("Feed refresh failed", "error", err, "topic", cfg.Topic)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return nil, err
	}
	f.sched = sched
	sched.Start()

	if cfg.Broker != nil {
		f.sub = cfg.Broker.Subscribe(cfg.Topic, cfg.Filter)
		go f.listen()
	}
	return f, nil
}

func (f *Feed[T]) listen() {
	for change := range f.sub.C {
		if f.sub.Dropped() {
			log.Warn("Feed missed changes, waiting for refresh", "topic", f.cfg.Topic)
			f.healthy.Store(false)
		}
		f.Apply(change)
	}
}

// Apply folds a single change into the list.
func (f *Feed[T]) Apply(change livequery.Change) {
	if change.Topic != f.cfg.Topic {
		return
	}
	if f.cfg.Filter != nil && !f.cfg.Filter(change) {
		return
	}
	ev, err := eventFromChange[T](change)
	if err != nil {
		log.Error("Failed to decode change", "error", err, "topic", change.Topic, "key", change.Key)
		f.healthy.Store(false)
		return
	}
	f.apply(ev)
}

func (f *Feed[T]) apply(ev Event[T]) {
	f.mu.Lock()
	f.items = Reduce(f.items, ev, f.cfg.Order)
	snapshot := append([]T(nil), f.items...)
	f.mu.Unlock()
	if f.cfg.OnUpdate != nil {
		f.cfg.OnUpdate(snapshot)
	}
}

// Refresh replaces the list with a fresh snapshot.
func (f *Feed[T]) Refresh(ctx context.Context) error {
	items, err := f.cfg.Load(ctx)
	if err != nil {
		f.healthy.Store(false)
		return err
	}
	f.apply(Event[T]{Kind: EventSnapshot, Items: items})
	f.healthy.Store(true)
	if f.cfg.Metrics != nil {
		f.cfg.Metrics.IncSnapshotRefreshes()
	}
	return nil
}

// Items returns a copy of the current list.
func (f *Feed[T]) Items() []T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]T(nil), f.items...)
}

// Healthy is false after a missed or undecodable change, until the next
// successful refresh.
func (f *Feed[T]) Healthy() bool {
	return f.healthy.Load()
}

// MarkUnhealthy flags the feed after a transport error.
func (f *Feed[T]) MarkUnhealthy() {
	f.healthy.Store(false)
}

// Close unsubscribes and stops the refresh job.
func (f *Feed[T]) Close() {
	f.once.Do(func() {
		if f.sub != nil {
			f.sub.Close()
		}
		if f.sched != nil {
			if err := f.sched.Shutdown(); err != nil {
				log.Warn("Failed to stop feed refresh", "error", err, "topic", f.cfg.Topic)
			}
		}
		close(f.done)
	})
}

// Done is closed once the feed is closed.
func (f *Feed[T]) Done() <-chan struct{} {
	return f.done
}

func eventFromChange[T Item](change livequery.Change) (Event[T], error) {
	switch change.Kind {
	case livequery.KindDeleted:
		return Event[T]{Kind: EventDeleted, Key: change.Key}, nil
	case livequery.KindCreated, livequery.KindUpdated:
		var item T
		if err := change.Decode(&item); err != nil {
			return Event[T]{}, err
		}
		kind := EventCreated
		if change.Kind == livequery.KindUpdated {
			kind = EventUpdated
		}
		return Event[T]{Kind: kind, Item: item}, nil
	default:
		return Event[T]{}, fmt.Errorf("unknown change kind %q", change.Kind)
	}
}
