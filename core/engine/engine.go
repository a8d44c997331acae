// Package engine owns the canonical simulated-minute counter, runs
// the periodic tick, and emits boundary notifications as derived
// calendar fields change.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"example.com/game-time/base/gametime"
	"example.com/game-time/base/metrics"
	"example.com/game-time/core/cooldown"
	"example.com/game-time/core/event"
)

// DefaultTickInterval is the real time one simulated minute takes at
// speed 1.0.
const DefaultTickInterval = 17 * time.Second

var ErrInvalidSpeed = errors.New("time speed must be greater than 0")

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: metrics.EngineTicksN,
		Help: metrics.EngineTicksH,
	})
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: metrics.EngineEventsN,
		Help: metrics.EngineEventsH,
	}, []string{"kind"})
	manualSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: metrics.EngineManualSetsN,
		Help: metrics.EngineManualSetsH,
	})
)

// StateStore persists the counter and the wall-clock cooldown entries.
type StateStore interface {
	Load() (totalMinutes int64, cooldowns []cooldown.Record, err error)
	Save(totalMinutes int64, cooldowns []cooldown.Record) error
}

type memStore struct{}

func (memStore) Load() (int64, []cooldown.Record, error) { return 0, nil, nil }
func (memStore) Save(int64, []cooldown.Record) error     { return nil }

// Options configures an Engine. The zero value of every field has a
// usable default.
type Options struct {
	// TickInterval is the real-time cadence of one simulated minute at
	// speed 1.0. Defaults to DefaultTickInterval.
	TickInterval time.Duration
	// Speed is the initial time speed multiplier. Defaults to 1.0.
	Speed float64
	// Clock supplies wall time and tickers; tests inject a fake.
	Clock clockwork.Clock
	Log   *zap.Logger
	// Sink receives boundary notifications in emission order.
	Sink event.Sink
	// Store persists state across restarts. Defaults to an in-memory
	// no-op store.
	Store StateStore
	// AutoSaveInterval is the cadence of periodic state flushes off
	// the tick path. Zero disables auto-save.
	AutoSaveInterval time.Duration
	// Refresh, if set, is invoked after each tick and after a manual
	// time set so renderers can recompute per-world visual time.
	Refresh func()
}

type Engine struct {
	log       *zap.Logger
	clk       clockwork.Clock
	sink      event.Sink
	store     StateStore
	base      time.Duration
	autoSave  time.Duration
	refresh   func()
	cooldowns *cooldown.Store

	mu         sync.Mutex
	started    bool
	total      int64
	speed      float64
	paused     bool
	lastHour   int
	lastDay    int
	lastWeek   int
	lastMonth  int
	lastMarker event.TimeOfDay
	hasMarker  bool

	stopOnce  sync.Once
	stopC     chan struct{}
	intervalC chan intervalChange
	pauseC    chan pauseChange
	wg        sync.WaitGroup
}

// Control messages are acknowledged: the caller returns only once the
// tick loop has applied the change, so a subsequent tick cannot race
// with the old cadence.
type intervalChange struct {
	interval time.Duration
	done     chan struct{}
}

type pauseChange struct {
	paused bool
	done   chan struct{}
}

func New(opts Options) *Engine {
	if opts.TickInterval < 0 {
		panic("tick interval must not be negative")
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Speed == 0 {
		opts.Speed = 1.0
	}
	if opts.Speed < 0 {
		panic("initial time speed must be greater than 0")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Sink == nil {
		opts.Sink = event.SinkFunc(func(event.Event) {})
	}
	if opts.Store == nil {
		opts.Store = memStore{}
	}
	e := &Engine{
		log:       opts.Log,
		clk:       opts.Clock,
		sink:      opts.Sink,
		store:     opts.Store,
		base:      opts.TickInterval,
		autoSave:  opts.AutoSaveInterval,
		refresh:   opts.Refresh,
		speed:     opts.Speed,
		stopC:     make(chan struct{}),
		intervalC: make(chan intervalChange),
		pauseC:    make(chan pauseChange),
	}
	e.cooldowns = cooldown.NewStore(e.clk, e.currentMinutes)
	return e
}

// Cooldowns returns the registry whose wall-clock entries the engine
// persists alongside its counter.
func (e *Engine) Cooldowns() *cooldown.Store {
	return e.cooldowns
}

// Start loads persisted state (zero on absence or corruption), primes
// the last-known calendar fields so no boundary events fire for the
// loaded position, and begins ticking.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		panic("clock engine already started")
	}
	e.mu.Unlock()

	total, recs, err := e.store.Load()
	if err != nil {
		e.log.Error("failed to load clock state, starting from zero", zap.Error(err))
		total, recs = 0, nil
	}
	e.cooldowns.RestoreWall(recs)

	e.mu.Lock()
	e.total = total
	snap := gametime.At(total)
	e.lastHour = snap.Hour
	e.lastDay = snap.Day
	e.lastWeek = snap.Week
	e.lastMonth = snap.Month
	e.hasMarker = false
	e.started = true
	interval := e.intervalLocked()
	speed := e.speed
	e.mu.Unlock()

	e.log.Info("clock engine started",
		zap.String("time", gametime.Format(total)),
		zap.Float64("speed", speed),
		zap.Duration("interval", interval),
		zap.Int("cooldowns", len(recs)),
	)

	e.wg.Add(1)
	go e.run(interval)
	if e.autoSave > 0 {
		e.wg.Add(1)
		go e.autoSaveLoop()
	}
}

// Stop halts ticking and flushes persisted state. An in-flight tick
// completes its full event cascade first.
func (e *Engine) Stop() {
	e.ensureStarted()
	e.stopOnce.Do(func() { close(e.stopC) })
	e.wg.Wait()
	e.saveState()
	e.log.Info("clock engine stopped", zap.String("time", gametime.Format(e.TotalMinutes())))
}

func (e *Engine) run(interval time.Duration) {
	defer e.wg.Done()
	t := e.clk.NewTicker(interval)
	defer t.Stop()
	paused := false
	for {
		select {
		case <-e.stopC:
			return
		case c := <-e.intervalC:
			interval = c.interval
			if !paused {
				t.Reset(interval)
			}
			close(c.done)
		case c := <-e.pauseC:
			if c.paused != paused {
				paused = c.paused
				if paused {
					t.Stop()
				} else {
					t.Reset(interval)
				}
			}
			close(c.done)
		case <-t.Chan():
			if paused {
				// Straggler delivered between the pause request and
				// the ticker stop; the counter stays frozen.
				continue
			}
			e.tick()
		}
	}
}

// tick advances the counter by exactly one simulated minute and emits
// boundary events in the contractual order: minute, hour, day, week,
// month, time-of-day.
func (e *Engine) tick() {
	e.mu.Lock()
	e.total++
	snap := gametime.At(e.total)

	evs := make([]event.Event, 0, 6)
	evs = append(evs, event.MinuteChanged{Total: snap.Total})
	if snap.Hour != e.lastHour {
		e.lastHour = snap.Hour
		evs = append(evs, event.HourChanged{Hour: snap.Hour, Day: snap.Day})
	}
	dayChanged := snap.Day != e.lastDay
	if dayChanged {
		e.lastDay = snap.Day
		evs = append(evs, event.DayChanged{Day: snap.Day})
	}
	if dayChanged && snap.DayOfWeek == 1 && snap.Week != e.lastWeek {
		e.lastWeek = snap.Week
		evs = append(evs, event.WeekChanged{Week: snap.Week, FirstDay: snap.Day})
	}
	if dayChanged && snap.Month != e.lastMonth {
		e.lastMonth = snap.Month
		evs = append(evs, event.MonthChanged{Month: snap.Month, Year: snap.Year})
	}
	if m, ok := event.MarkerForHour(snap.Hour); ok && (!e.hasMarker || m != e.lastMarker) {
		e.lastMarker = m
		e.hasMarker = true
		evs = append(evs, event.TimeOfDayChanged{Marker: m, Day: snap.Day})
	}
	e.mu.Unlock()

	ticksTotal.Inc()
	for _, ev := range evs {
		eventsTotal.WithLabelValues(ev.Kind().String()).Inc()
		e.sink.Publish(ev)
	}
	if e.refresh != nil {
		e.refresh()
	}
}

// SetTime validates and jumps the clock to a calendar position. The
// last-known fields refresh immediately, so no boundary events fire
// retroactively; a single TimeManuallySet notification is emitted.
func (e *Engine) SetTime(day, hour, minute int) error {
	e.ensureStarted()
	total, err := gametime.Minutes(day, hour, minute)
	if err != nil {
		return err
	}

	e.mu.Lock()
	old := e.total
	e.total = total
	snap := gametime.At(total)
	e.lastHour = snap.Hour
	e.lastDay = snap.Day
	e.lastWeek = snap.Week
	e.lastMonth = snap.Month
	e.mu.Unlock()

	manualSetsTotal.Inc()
	eventsTotal.WithLabelValues(event.KindTimeManuallySet.String()).Inc()
	e.sink.Publish(event.TimeManuallySet{
		OldTotal: old,
		NewTotal: total,
		Day:      day,
		Hour:     hour,
		Minute:   minute,
	})
	if e.refresh != nil {
		e.refresh()
	}
	e.log.Info("time manually set",
		zap.Int64("old_total", old),
		zap.Int64("new_total", total),
		zap.String("time", gametime.Format(total)),
	)
	return nil
}

// SetTimeSpeed changes the tick cadence to baseInterval/speed. The
// counter is untouched; only future ticks are affected.
func (e *Engine) SetTimeSpeed(speed float64) error {
	e.ensureStarted()
	if speed <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSpeed, speed)
	}
	e.mu.Lock()
	e.speed = speed
	d := e.intervalLocked()
	e.mu.Unlock()
	done := make(chan struct{})
	select {
	case e.intervalC <- intervalChange{interval: d, done: done}:
		<-done
	case <-e.stopC:
	}
	e.log.Info("time speed changed", zap.Float64("speed", speed), zap.Duration("interval", d))
	return nil
}

// PauseTime freezes the counter. An in-flight tick completes its full
// event cascade before the pause takes effect.
func (e *Engine) PauseTime() {
	e.ensureStarted()
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
	done := make(chan struct{})
	select {
	case e.pauseC <- pauseChange{paused: true, done: done}:
		<-done
	case <-e.stopC:
	}
	e.log.Info("time paused")
}

// ResumeTime restarts the periodic tick at the current speed.
func (e *Engine) ResumeTime() {
	e.ensureStarted()
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
	done := make(chan struct{})
	select {
	case e.pauseC <- pauseChange{paused: false, done: done}:
		<-done
	case <-e.stopC:
	}
	e.log.Info("time resumed")
}

func (e *Engine) intervalLocked() time.Duration {
	return time.Duration(float64(e.base) / e.speed)
}

// currentMinutes reads the counter without the started check; it backs
// the cooldown registry's simulated time base.
func (e *Engine) currentMinutes() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

func (e *Engine) ensureStarted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		panic("clock engine not started")
	}
}

func (e *Engine) snapshot() gametime.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		panic("clock engine not started")
	}
	return gametime.At(e.total)
}

func (e *Engine) TotalMinutes() int64 { return e.snapshot().Total }
func (e *Engine) Day() int            { return e.snapshot().Day }
func (e *Engine) Hour() int           { return e.snapshot().Hour }
func (e *Engine) Minute() int         { return e.snapshot().Minute }
func (e *Engine) Week() int           { return e.snapshot().Week }
func (e *Engine) Month() int          { return e.snapshot().Month }
func (e *Engine) Year() int           { return e.snapshot().Year }
func (e *Engine) DayOfWeek() int      { return e.snapshot().DayOfWeek }

func (e *Engine) FormattedTime() string {
	return gametime.Format(e.snapshot().Total)
}

// Snapshot returns every calendar field for the current counter value.
func (e *Engine) Snapshot() gametime.Snapshot { return e.snapshot() }

func (e *Engine) TimeSpeed() float64 {
	e.ensureStarted()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

func (e *Engine) IsTimePaused() bool {
	e.ensureStarted()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Engine) autoSaveLoop() {
	defer e.wg.Done()
	t := e.clk.NewTicker(e.autoSave)
	defer t.Stop()
	for {
		select {
		case <-e.stopC:
			return
		case <-t.Chan():
			e.saveState()
		}
	}
}

// saveState flushes the counter and wall-clock cooldowns. It never
// runs on the tick goroutine.
func (e *Engine) saveState() {
	e.mu.Lock()
	total := e.total
	e.mu.Unlock()
	recs := e.cooldowns.SnapshotWall()
	if err := e.store.Save(total, recs); err != nil {
		e.log.Error("failed to save clock state", zap.Error(err))
		return
	}
	e.log.Debug("clock state saved",
		zap.String("time", gametime.Format(total)),
		zap.Int("cooldowns", len(recs)),
	)
}
