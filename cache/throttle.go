package cache

import (
	"context"
	"fmt"
	"time"

	"stock-hub/observability"
)

// Throttle is an advisory rate marker over Redis SETNX. It records how
// often a resource is hit inside its window but never blocks a request:
// upstream providers enforce their own limits, this only feeds metrics
// and logs.
type Throttle struct {
	store  *Store
	window time.Duration
}

// NewThrottle creates a throttle with the given marker window.
func NewThrottle(store *Store, window time.Duration) *Throttle {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &Throttle{store: store, window: window}
}

// Observe records a hit against a resource. Returns true when another hit
// already landed inside the window. Without a cache it always returns false.
func (t *Throttle) Observe(ctx context.Context, resource string) bool {
	if t == nil || t.store == nil {
		return false
	}

	key := fmt.Sprintf("throttle:%s", resource)
	set, err := t.store.SetNX(ctx, key, t.window)
	if err != nil {
		observability.WithError(err).Debug("Throttle marker failed", "resource", resource)
		return false
	}
	if !set {
		observability.GetMetrics().RecordThrottleHit(resource)
		observability.Debug("Throttle window hit", "resource", resource)
		return true
	}
	return false
}
