// Package cache holds the single forecast snapshot the client serves from
// between fetches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tray-weather/logger"
	"tray-weather/models"

	"github.com/jonboulle/clockwork"
)

const (
	// SnapshotKey is the only key the cache ever writes
	SnapshotKey = "weather_data"

	// StaleAfter is the age at which a snapshot should be refreshed
	StaleAfter = 15 * time.Minute
)

// ErrCorruptSnapshot marks a stored value that cannot be turned back into a
// usable snapshot
var ErrCorruptSnapshot = errors.New("corrupt weather snapshot")

// Snapshot is one capture of the provider payload
type Snapshot struct {
	Payload    models.RawForecastPayload
	CapturedAt time.Time
}

// Age returns how old the snapshot is at now
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

// IsStale reports whether the snapshot reached StaleAfter at now
func (s Snapshot) IsStale(now time.Time) bool {
	return s.Age(now) >= StaleAfter
}

// record is the serialized form: {"data": payload, "timestamp": unix millis}
type record struct {
	Data      *models.RawForecastPayload `json:"data"`
	Timestamp int64                      `json:"timestamp"`
}

// SnapshotCache is a single-slot cache over a Store
type SnapshotCache struct {
	store  Store
	clock  clockwork.Clock
	logger logger.Logger

	mutex     sync.Mutex
	hitCount  int
	missCount int
}

// NewSnapshotCache creates a cache writing to store. A nil clock uses the
// real clock and a nil logger discards output.
func NewSnapshotCache(store Store, clock clockwork.Clock, log logger.Logger) *SnapshotCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SnapshotCache{
		store:  store,
		clock:  clock,
		logger: log.WithField("component", "snapshot_cache"),
	}
}

// Clock returns the clock used to stamp and age snapshots
func (c *SnapshotCache) Clock() clockwork.Clock {
	return c.clock
}

// Put replaces the slot with payload captured now
func (c *SnapshotCache) Put(ctx context.Context, payload models.RawForecastPayload) (Snapshot, error) {
	capturedAt := time.UnixMilli(c.clock.Now().UnixMilli())

	data, err := json.Marshal(record{Data: &payload, Timestamp: capturedAt.UnixMilli()})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.store.Save(ctx, SnapshotKey, data); err != nil {
		return Snapshot{}, fmt.Errorf("failed to store snapshot: %w", err)
	}

	c.logger.Debugf("Stored snapshot captured at %s", capturedAt.Format(time.RFC3339))
	return Snapshot{Payload: payload, CapturedAt: capturedAt}, nil
}

// Load returns the current snapshot. It fails with ErrNotFound when the slot
// is empty and with an error wrapping ErrCorruptSnapshot when the stored value
// is unusable. Load never modifies the slot.
func (c *SnapshotCache) Load(ctx context.Context) (Snapshot, error) {
	data, err := c.store.Load(ctx, SnapshotKey)
	if err != nil {
		return Snapshot{}, err
	}
	return decode(data)
}

// Get returns the current snapshot and whether one was available. Any failure
// reads as an empty slot; a corrupt value is cleared so it is not parsed again.
func (c *SnapshotCache) Get(ctx context.Context) (Snapshot, bool) {
	snap, err := c.Load(ctx)
	switch {
	case err == nil:
		c.count(true)
		c.logger.Debugf("Cache HIT (age: %s)", snap.Age(c.clock.Now()).Round(time.Second))
		return snap, true
	case errors.Is(err, ErrNotFound):
		c.count(false)
		return Snapshot{}, false
	case errors.Is(err, ErrCorruptSnapshot):
		c.count(false)
		c.logger.Warnf("Discarding cached snapshot: %v", err)
		if clearErr := c.Clear(ctx); clearErr != nil {
			c.logger.Errorf("Failed to clear corrupt snapshot: %v", clearErr)
		}
		return Snapshot{}, false
	default:
		c.count(false)
		c.logger.Errorf("Failed to read cached snapshot: %v", err)
		return Snapshot{}, false
	}
}

// Clear empties the slot; clearing an empty slot is not an error
func (c *SnapshotCache) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, SnapshotKey); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}

// Stats returns statistics about cache hits and misses
func (c *SnapshotCache) Stats() (hits, misses int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.hitCount, c.missCount
}

func (c *SnapshotCache) count(hit bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if hit {
		c.hitCount++
	} else {
		c.missCount++
	}
}

func decode(data []byte) (Snapshot, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if rec.Data == nil {
		return Snapshot{}, fmt.Errorf("%w: missing data", ErrCorruptSnapshot)
	}
	if rec.Timestamp <= 0 {
		return Snapshot{}, fmt.Errorf("%w: missing timestamp", ErrCorruptSnapshot)
	}
	if err := rec.Data.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return Snapshot{Payload: *rec.Data, CapturedAt: time.UnixMilli(rec.Timestamp)}, nil
}
