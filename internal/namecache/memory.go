package namecache

import (
	"context"
	"sync"
	"time"
)

type memItem struct {
	name string
	ttl  time.Time
}

// memory is an in-process cache with a short TTL.
type memory struct {
	items         sync.Map
	ttl           time.Duration
	cleanupTicker *time.Ticker
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewMemory creates a memory cache whose entries live for ttl.
func NewMemory(ttl time.Duration) Cache {
	ctx, cancel := context.WithCancel(context.Background())
	mc := &memory{
		ttl:           ttl,
		cleanupTicker: time.NewTicker(5 * time.Minute),
		ctx:           ctx,
		cancel:        cancel,
	}
	mc.startCleanupWorker()
	return mc
}

func (mc *memory) startCleanupWorker() {
	mc.wg.Add(1)
	go func() {
		defer mc.wg.Done()
		for {
			select {
			case <-mc.cleanupTicker.C:
				mc.cleanup()
			case <-mc.ctx.Done():
				return
			}
		}
	}()
}

func (mc *memory) cleanup() {
	now := time.Now()
	mc.items.Range(func(key, value any) bool {
		if now.After(value.(*memItem).ttl) {
			mc.items.Delete(key)
		}
		return true
	})
}

func (mc *memory) Get(_ context.Context, playerID string) (string, bool) {
	value, ok := mc.items.Load(playerID)
	if !ok {
		return "", false
	}
	item := value.(*memItem)
	if time.Now().After(item.ttl) {
		mc.items.Delete(playerID)
		return "", false
	}
	return item.name, true
}

func (mc *memory) Set(_ context.Context, playerID, name string) {
	mc.items.Store(playerID, &memItem{name: name, ttl: time.Now().Add(mc.ttl)})
}

func (mc *memory) Delete(_ context.Context, playerID string) {
	mc.items.Delete(playerID)
}

// Close stops the cleanup worker.
func (mc *memory) Close() {
	mc.cancel()
	mc.cleanupTicker.Stop()
	mc.wg.Wait()
}
