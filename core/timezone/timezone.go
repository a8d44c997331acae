// Package timezone derives each world's local time from the canonical
// clock through a per-world offset, speed multiplier, and override.
package timezone

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/game-time/base/gametime"
	"example.com/game-time/base/metrics"
)

var ErrInvalidSpeed = errors.New("time speed must be greater than 0")

var worldsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: metrics.TimezoneWorldsN,
	Help: metrics.TimezoneWorldsH,
})

// TicksPerDay is the renderable day length: one calendar day maps onto
// [0, 24000) visual ticks.
const TicksPerDay = 24000

type Override int

const (
	OverrideNone Override = iota
	// OverrideFixedHour pins the world's visual time to one hour.
	OverrideFixedHour
	// OverrideReverseFlow replaces the static offset with
	// -2 * serverTotalMinutes, so local time runs backwards.
	OverrideReverseFlow
)

// Config is one world's transform relative to the canonical clock.
// The zero world (absent from the registry) uses offset 0, speed 1.0,
// no override.
type Config struct {
	OffsetMinutes int64
	Speed         float64
	Override      Override
	FixedHour     int
}

var defaultConfig = Config{Speed: 1.0}

// Registry holds the per-world configurations. Reads dominate, so the
// map sits behind a reader-favoring lock; it is never persisted, a
// restart rebuilds it from configuration.
type Registry struct {
	mu     sync.RWMutex
	worlds map[string]Config
}

func NewRegistry() *Registry {
	return &Registry{worlds: make(map[string]Config)}
}

func (r *Registry) store(world string, mutate func(*Config)) {
	r.mu.Lock()
	c, ok := r.worlds[world]
	if !ok {
		c = defaultConfig
	}
	mutate(&c)
	r.worlds[world] = c
	n := len(r.worlds)
	r.mu.Unlock()
	worldsGauge.Set(float64(n))
}

func (r *Registry) SetOffset(world string, offsetMinutes int64) {
	r.store(world, func(c *Config) { c.OffsetMinutes = offsetMinutes })
}

func (r *Registry) SetSpeed(world string, speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSpeed, speed)
	}
	r.store(world, func(c *Config) { c.Speed = speed })
	return nil
}

func (r *Registry) SetOverride(world string, o Override, fixedHour int) {
	r.store(world, func(c *Config) {
		c.Override = o
		c.FixedHour = fixedHour
	})
}

// Apply installs a preset's offset and override, keeping the world's
// configured speed.
func (r *Registry) Apply(world string, p Preset) {
	r.store(world, func(c *Config) {
		c.OffsetMinutes = p.OffsetMinutes
		c.Override = p.Override
		c.FixedHour = p.FixedHour
	})
}

// Config returns the world's transform, or the implicit default for an
// unconfigured world.
func (r *Registry) Config(world string) Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.worlds[world]; ok {
		return c
	}
	return defaultConfig
}

func (r *Registry) Offset(world string) int64 {
	return r.Config(world).OffsetMinutes
}

func (r *Registry) Speed(world string) float64 {
	return r.Config(world).Speed
}

// WorldTotalMinutes derives the world-local counter. The speed
// multiplication and truncation happen before the offset is added;
// that ordering is part of the contract.
func (r *Registry) WorldTotalMinutes(world string, serverTotal int64) int64 {
	c := r.Config(world)
	scaled := int64(float64(serverTotal) * c.Speed)
	if c.Override == OverrideReverseFlow {
		return scaled + -2*serverTotal
	}
	return scaled + c.OffsetMinutes
}

func (r *Registry) WorldDay(world string, serverTotal int64) int {
	return gametime.Day(r.WorldTotalMinutes(world, serverTotal))
}

func (r *Registry) WorldHour(world string, serverTotal int64) int {
	return gametime.Hour(r.WorldTotalMinutes(world, serverTotal))
}

func (r *Registry) WorldMinute(world string, serverTotal int64) int {
	return gametime.Minute(r.WorldTotalMinutes(world, serverTotal))
}

func (r *Registry) WorldFormattedTime(world string, serverTotal int64) string {
	return gametime.Format(r.WorldTotalMinutes(world, serverTotal))
}

// VisualTicks computes the renderable time-of-day value for a world in
// a normal environment. If any configured world carries a fixed-hour
// override, that hour's tick value is substituted for every world; the
// first match in sorted world-name order wins when several coexist.
func (r *Registry) VisualTicks(world string, serverTotal int64) int64 {
	if h, ok := r.fixedHour(); ok {
		return int64(h) * 1000 % TicksPerDay
	}
	worldTotal := r.WorldTotalMinutes(world, serverTotal)
	return worldTotal % gametime.MinutesPerDay * TicksPerDay / gametime.MinutesPerDay
}

func (r *Registry) fixedHour() (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.worlds))
	for name, c := range r.worlds {
		if c.Override == OverrideFixedHour {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return 0, false
	}
	sort.Strings(names)
	return r.worlds[names[0]].FixedHour, true
}

// Worlds returns the configured world ids in sorted order.
func (r *Registry) Worlds() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.worlds))
	for name := range r.worlds {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// ResetAll wipes every configured offset, speed, and override back to
// the implicit default.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	r.worlds = make(map[string]Config)
	r.mu.Unlock()
	worldsGauge.Set(0)
}
