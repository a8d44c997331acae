package timezone_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/game-time/core/timezone"
)

func TestDefaultWorldTracksServer(t *testing.T) {
	r := timezone.NewRegistry()

	for _, server := range []int64{0, 1, 1439, 1440, 99999} {
		assert.Equal(t, server, r.WorldTotalMinutes("unconfigured", server))
	}
}

func TestSpeedAppliesBeforeOffset(t *testing.T) {
	r := timezone.NewRegistry()
	r.SetOffset("w", 100)
	require.NoError(t, r.SetSpeed("w", 2.0))

	// floor(50 * 2.0) + 100, not floor((50 + 100) * 2.0)
	assert.Equal(t, int64(200), r.WorldTotalMinutes("w", 50))

	require.NoError(t, r.SetSpeed("w", 0.5))
	assert.Equal(t, int64(125), r.WorldTotalMinutes("w", 51))
}

func TestInvalidSpeedRejected(t *testing.T) {
	r := timezone.NewRegistry()
	r.SetOffset("w", 42)

	assert.ErrorIs(t, r.SetSpeed("w", 0), timezone.ErrInvalidSpeed)
	assert.ErrorIs(t, r.SetSpeed("w", -1.5), timezone.ErrInvalidSpeed)
	// Config unchanged.
	assert.Equal(t, 1.0, r.Speed("w"))
	assert.Equal(t, int64(42), r.Offset("w"))
}

func TestReverseFlow(t *testing.T) {
	r := timezone.NewRegistry()
	p, ok := timezone.PresetByName("reversed_time")
	require.True(t, ok)
	r.Apply("mirror", p)

	// offset becomes -2 * serverTotal, so local time runs backwards.
	assert.Equal(t, int64(0), r.WorldTotalMinutes("mirror", 0))
	assert.Equal(t, int64(-100), r.WorldTotalMinutes("mirror", 100))
	assert.Equal(t, int64(-1440), r.WorldTotalMinutes("mirror", 1440))
}

func TestWorldCalendarFields(t *testing.T) {
	r := timezone.NewRegistry()
	r.SetOffset("east", 180)

	server := int64(1440*2 + 750) // day 3, 12:30
	assert.Equal(t, 3, r.WorldDay("east", server))
	assert.Equal(t, 15, r.WorldHour("east", server))
	assert.Equal(t, 30, r.WorldMinute("east", server))
	assert.Equal(t, "3일차 15:30", r.WorldFormattedTime("east", server))
}

func TestVisualTicks(t *testing.T) {
	r := timezone.NewRegistry()

	tests := []struct {
		server int64
		want   int64
	}{
		{0, 0},
		{360, 6000},  // 06:00
		{720, 12000}, // noon
		{1439, 23983},
		{1440, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.VisualTicks("w", tt.server), "server=%d", tt.server)
	}
}

func TestFixedHourOverridesVisualTicks(t *testing.T) {
	r := timezone.NewRegistry()
	day, ok := timezone.PresetByName("eternal_day")
	require.True(t, ok)
	r.Apply("frozen", day)
	r.SetOffset("plain", 0)

	// The fixed hour leaks into every world's visual time.
	assert.Equal(t, int64(12000), r.VisualTicks("frozen", 300))
	assert.Equal(t, int64(12000), r.VisualTicks("plain", 300))
}

func TestFixedHourFirstMatchWins(t *testing.T) {
	r := timezone.NewRegistry()
	day, _ := timezone.PresetByName("eternal_day")
	night, _ := timezone.PresetByName("eternal_night")

	// Two fixed-hour overrides coexist; the first in sorted world-name
	// order wins.
	r.Apply("zz_world", day)
	r.Apply("aa_world", night)

	assert.Equal(t, int64(0), r.VisualTicks("anything", 720))
}

func TestResetAllTimeZones(t *testing.T) {
	r := timezone.NewRegistry()
	r.SetOffset("a", 500)
	require.NoError(t, r.SetSpeed("b", 3.0))
	night, _ := timezone.PresetByName("eternal_night")
	r.Apply("c", night)
	require.Len(t, r.Worlds(), 3)

	r.ResetAll()

	assert.Empty(t, r.Worlds())
	assert.Equal(t, int64(77), r.WorldTotalMinutes("a", 77))
	assert.Equal(t, int64(77), r.WorldTotalMinutes("b", 77))
	assert.Equal(t, int64(6000), r.VisualTicks("c", 360))
}

func TestPresets(t *testing.T) {
	tests := []struct {
		name   string
		offset int64
	}{
		{"server_time", 0},
		{"early_morning", -360},
		{"morning", -180},
		{"afternoon", 180},
		{"evening", 360},
		{"night", 540},
		{"midnight", 720},
		{"utc-12", -17280},
		{"utc+12", 17280},
	}
	for _, tt := range tests {
		p, ok := timezone.PresetByName(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.offset, p.OffsetMinutes, tt.name)
		assert.Equal(t, timezone.OverrideNone, p.Override, tt.name)
	}

	_, ok := timezone.PresetByName("no_such_preset")
	assert.False(t, ok)

	day, ok := timezone.PresetByName("eternal_day")
	require.True(t, ok)
	assert.Equal(t, timezone.OverrideFixedHour, day.Override)
	assert.Equal(t, 12, day.FixedHour)
}

func TestApplyKeepsSpeed(t *testing.T) {
	r := timezone.NewRegistry()
	require.NoError(t, r.SetSpeed("w", 2.0))
	evening, _ := timezone.PresetByName("evening")
	r.Apply("w", evening)

	assert.Equal(t, 2.0, r.Speed("w"))
	assert.Equal(t, int64(360), r.Offset("w"))
}
