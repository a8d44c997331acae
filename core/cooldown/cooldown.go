// Package cooldown tracks independently-expiring named cooldowns in
// two time bases: wall-clock time and simulated minutes. Reads vastly
// outnumber writes, so both maps sit behind a reader-favoring lock.
package cooldown

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/game-time/base/metrics"
)

var activeGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: metrics.CooldownsActiveN,
	Help: metrics.CooldownsActiveH,
})

// MinuteSource reports the current simulated-minute counter.
type MinuteSource func() int64

// Record is the persisted form of a wall-clock cooldown entry.
type Record struct {
	ID              string
	StartUnixMillis int64
	DurationMillis  int64
}

type wallEntry struct {
	start    time.Time
	duration time.Duration
}

// Store holds both cooldown kinds under one keyspace contract: ids are
// caller-chosen strings, and callers namespace them (see EntityKey).
type Store struct {
	clk     clockwork.Clock
	minutes MinuteSource

	mu   sync.RWMutex
	wall map[string]wallEntry
	sim  map[string]int64
}

func NewStore(clk clockwork.Clock, minutes MinuteSource) *Store {
	if clk == nil {
		panic("clock must not be nil")
	}
	if minutes == nil {
		panic("minute source must not be nil")
	}
	return &Store{
		clk:     clk,
		minutes: minutes,
		wall:    make(map[string]wallEntry),
		sim:     make(map[string]int64),
	}
}

// EntityKey namespaces a cooldown id with an entity identifier, the
// convention used for per-entity cooldowns.
func EntityKey(kind, entity string) string {
	return kind + "_" + entity
}

// Set arms a wall-clock cooldown. A second Set for the same id
// replaces the previous entry.
func (s *Store) Set(id string, durationSeconds int64) {
	s.mu.Lock()
	s.wall[id] = wallEntry{
		start:    s.clk.Now(),
		duration: time.Duration(durationSeconds) * time.Second,
	}
	n := len(s.wall) + len(s.sim)
	s.mu.Unlock()
	activeGauge.Set(float64(n))
}

// IsOver reports whether a wall-clock cooldown has expired. An unknown
// id is already expired, not an error.
func (s *Store) IsOver(id string) bool {
	s.mu.RLock()
	e, ok := s.wall[id]
	s.mu.RUnlock()
	if !ok {
		return true
	}
	return s.clk.Since(e.start) >= e.duration
}

// Remaining returns the remaining wall-clock cooldown in whole
// seconds, floored at zero.
func (s *Store) Remaining(id string) int64 {
	s.mu.RLock()
	e, ok := s.wall[id]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	left := e.duration - s.clk.Since(e.start)
	if left <= 0 {
		return 0
	}
	return int64(left / time.Second)
}

// SetSimulated arms a simulated cooldown at the current minute
// counter. The duration is not stored; checks supply it.
func (s *Store) SetSimulated(id string) {
	m := s.minutes()
	s.mu.Lock()
	s.sim[id] = m
	n := len(s.wall) + len(s.sim)
	s.mu.Unlock()
	activeGauge.Set(float64(n))
}

func (s *Store) IsSimulatedOver(id string, durationMinutes int64) bool {
	s.mu.RLock()
	start, ok := s.sim[id]
	s.mu.RUnlock()
	if !ok {
		return true
	}
	return s.minutes()-start >= durationMinutes
}

func (s *Store) RemainingSimulated(id string, durationMinutes int64) int64 {
	s.mu.RLock()
	start, ok := s.sim[id]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	elapsed := s.minutes() - start
	if elapsed >= durationMinutes {
		return 0
	}
	return durationMinutes - elapsed
}

// Remove deletes the id from both kinds' storage. Removing an unknown
// id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	delete(s.wall, id)
	delete(s.sim, id)
	n := len(s.wall) + len(s.sim)
	s.mu.Unlock()
	activeGauge.Set(float64(n))
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wall) + len(s.sim)
}

// SnapshotWall returns the wall-clock entries for persistence, sorted
// by id so saved files are deterministic.
func (s *Store) SnapshotWall() []Record {
	s.mu.RLock()
	recs := make([]Record, 0, len(s.wall))
	for id, e := range s.wall {
		recs = append(recs, Record{
			ID:              id,
			StartUnixMillis: e.start.UnixMilli(),
			DurationMillis:  e.duration.Milliseconds(),
		})
	}
	s.mu.RUnlock()
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs
}

// RestoreWall replaces the wall-clock entries with persisted records.
// Records carrying no duration restore as already expired.
func (s *Store) RestoreWall(recs []Record) {
	s.mu.Lock()
	s.wall = make(map[string]wallEntry, len(recs))
	for _, r := range recs {
		s.wall[r.ID] = wallEntry{
			start:    time.UnixMilli(r.StartUnixMillis),
			duration: time.Duration(r.DurationMillis) * time.Millisecond,
		}
	}
	n := len(s.wall) + len(s.sim)
	s.mu.Unlock()
	activeGauge.Set(float64(n))
}
