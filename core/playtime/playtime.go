// Package playtime keeps per-entity session bookkeeping: wall-clock
// play time and the simulated time experienced since joining.
package playtime

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"example.com/game-time/base/gametime"
)

// MinuteSource reports the current simulated-minute counter.
type MinuteSource func() int64

type Tracker struct {
	clk     clockwork.Clock
	minutes MinuteSource

	mu          sync.RWMutex
	joinWall    map[string]time.Time
	joinMinutes map[string]int64
	accumulated map[string]time.Duration
}

func NewTracker(clk clockwork.Clock, minutes MinuteSource) *Tracker {
	if clk == nil {
		panic("clock must not be nil")
	}
	if minutes == nil {
		panic("minute source must not be nil")
	}
	return &Tracker{
		clk:         clk,
		minutes:     minutes,
		joinWall:    make(map[string]time.Time),
		joinMinutes: make(map[string]int64),
		accumulated: make(map[string]time.Duration),
	}
}

// Join records a session start. Joining twice restarts the session
// without crediting the abandoned one.
func (t *Tracker) Join(id string) {
	now := t.clk.Now()
	m := t.minutes()
	t.mu.Lock()
	t.joinWall[id] = now
	t.joinMinutes[id] = m
	if _, ok := t.accumulated[id]; !ok {
		t.accumulated[id] = 0
	}
	t.mu.Unlock()
}

// Quit ends a session, folding it into the accumulated total.
func (t *Tracker) Quit(id string) {
	now := t.clk.Now()
	t.mu.Lock()
	if joined, ok := t.joinWall[id]; ok {
		t.accumulated[id] += now.Sub(joined)
		delete(t.joinWall, id)
	}
	delete(t.joinMinutes, id)
	t.mu.Unlock()
}

// SessionSeconds returns the live session length, 0 when offline.
func (t *Tracker) SessionSeconds(id string) int64 {
	t.mu.RLock()
	joined, ok := t.joinWall[id]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return int64(t.clk.Since(joined) / time.Second)
}

// TotalSeconds returns accumulated play time plus the live session.
func (t *Tracker) TotalSeconds(id string) int64 {
	t.mu.RLock()
	total := t.accumulated[id]
	joined, online := t.joinWall[id]
	t.mu.RUnlock()
	if online {
		total += t.clk.Since(joined)
	}
	return int64(total / time.Second)
}

// EntityDay returns the simulated day count experienced since joining,
// starting at 1, or 0 when offline.
func (t *Tracker) EntityDay(id string) int {
	played, ok := t.playedMinutes(id)
	if !ok {
		return 0
	}
	return gametime.Day(played)
}

// EntityHour returns the hour of the entity's experienced time, or the
// server hour when offline.
func (t *Tracker) EntityHour(id string) int {
	played, ok := t.playedMinutes(id)
	if !ok {
		return gametime.Hour(t.minutes())
	}
	return gametime.Hour(played)
}

// EntityMinute returns the minute of the entity's experienced time, or
// the server minute when offline.
func (t *Tracker) EntityMinute(id string) int {
	played, ok := t.playedMinutes(id)
	if !ok {
		return gametime.Minute(t.minutes())
	}
	return gametime.Minute(played)
}

func (t *Tracker) EntityFormattedTime(id string) string {
	return fmt.Sprintf("%d일차 %02d:%02d",
		t.EntityDay(id), t.EntityHour(id), t.EntityMinute(id))
}

// JoinServerTime returns the server's formatted time at the moment the
// entity joined.
func (t *Tracker) JoinServerTime(id string) (string, bool) {
	t.mu.RLock()
	joined, ok := t.joinMinutes[id]
	t.mu.RUnlock()
	if !ok {
		return "", false
	}
	return gametime.Format(joined), true
}

func (t *Tracker) playedMinutes(id string) (int64, bool) {
	t.mu.RLock()
	joined, ok := t.joinMinutes[id]
	t.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return t.minutes() - joined, true
}

// FormattedPlayTime renders the total play time as "2일 5시간 30분".
// Units with zero value are omitted; a zero total renders as "0초".
func (t *Tracker) FormattedPlayTime(id string) string {
	total := t.TotalSeconds(id)

	days := total / 86400
	hours := total % 86400 / 3600
	mins := total % 3600 / 60
	secs := total % 60

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%d일 ", days)
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%d시간 ", hours)
	}
	if mins > 0 {
		fmt.Fprintf(&b, "%d분 ", mins)
	}
	if secs > 0 || b.Len() == 0 {
		fmt.Fprintf(&b, "%d초", secs)
	}
	return strings.TrimSpace(b.String())
}

// FlushAll folds every live session into the accumulated totals, for
// shutdown.
func (t *Tracker) FlushAll() {
	now := t.clk.Now()
	t.mu.Lock()
	for id, joined := range t.joinWall {
		t.accumulated[id] += now.Sub(joined)
	}
	t.joinWall = make(map[string]time.Time)
	t.joinMinutes = make(map[string]int64)
	t.mu.Unlock()
}

// AllTotals returns a copy of the accumulated totals in seconds,
// including live sessions.
func (t *Tracker) AllTotals() map[string]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int64, len(t.accumulated))
	for id, d := range t.accumulated {
		if joined, ok := t.joinWall[id]; ok {
			d += t.clk.Now().Sub(joined)
		}
		out[id] = int64(d / time.Second)
	}
	return out
}

// SetTotals replaces the accumulated totals, for restoring persisted
// bookkeeping.
func (t *Tracker) SetTotals(seconds map[string]int64) {
	t.mu.Lock()
	t.accumulated = make(map[string]time.Duration, len(seconds))
	for id, s := range seconds {
		t.accumulated[id] = time.Duration(s) * time.Second
	}
	t.mu.Unlock()
}
