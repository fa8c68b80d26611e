// Package cache keeps short-lived copies of per-user query results so the
// dashboard and report screens do not hit the store on every refresh.
package cache

import (
	"context"
	"time"

	applog "budgetplanner/internal/log"
)

// Cache is a keyed store with expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeletePrefix drops every key starting with prefix and reports how
	// many were removed.
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries in bulk.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps expired entries from registered caches.
type Janitor struct {
	caches []Cleaner
	logger *applog.Logger
	stop   chan struct{}
	done   chan struct{}
}

func NewJanitor(logger *applog.Logger) *Janitor {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Janitor{
		logger: logger.WithComponent(applog.ComponentCache),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Start sweeps every interval until Stop is called or ctx ends.
func (j *Janitor) Start(ctx context.Context, interval time.Duration) {
	go j.run(ctx, interval)
}

func (j *Janitor) run(ctx context.Context, interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return
		case <-j.stop:
			return
		}
	}
}

// Sweep runs one cleanup pass and returns the number of entries removed.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the sweep loop started by Start and waits for it.
func (j *Janitor) Stop() {
	select {
	case <-j.stop:
		return
	default:
		close(j.stop)
	}
	<-j.done
}
