package event_test

import (
	"testing"

	evbus "github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/game-time/core/event"
)

func TestMarkerForHour(t *testing.T) {
	tests := []struct {
		hour   int
		marker event.TimeOfDay
		ok     bool
	}{
		{0, event.Midnight, true},
		{5, event.Dawn, true},
		{6, event.Morning, true},
		{12, event.Noon, true},
		{18, event.Dusk, true},
		{22, event.Night, true},
		{1, 0, false},
		{11, 0, false},
		{23, 0, false},
	}

	for _, tt := range tests {
		m, ok := event.MarkerForHour(tt.hour)
		if ok != tt.ok {
			t.Errorf("MarkerForHour(%d) ok = %v, want %v", tt.hour, ok, tt.ok)
			continue
		}
		if ok && m != tt.marker {
			t.Errorf("MarkerForHour(%d) = %v, want %v", tt.hour, m, tt.marker)
		}
	}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		kind event.Kind
		want string
	}{
		{event.KindMinuteChanged, "time.minute"},
		{event.KindHourChanged, "time.hour"},
		{event.KindDayChanged, "time.day"},
		{event.KindWeekChanged, "time.week"},
		{event.KindMonthChanged, "time.month"},
		{event.KindTimeOfDayChanged, "time.timeofday"},
		{event.KindTimeManuallySet, "time.manual"},
	}

	for _, tt := range tests {
		if got := event.Topic(tt.kind); got != tt.want {
			t.Errorf("Topic(%v) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestBusSinkDelivery(t *testing.T) {
	bus := evbus.New()
	var days []int
	err := bus.Subscribe(event.Topic(event.KindDayChanged), func(e event.DayChanged) {
		days = append(days, e.Day)
	})
	require.NoError(t, err)

	sink := event.NewBusSink(bus)
	sink.Publish(event.DayChanged{Day: 2})
	sink.Publish(event.MinuteChanged{Total: 1441})
	sink.Publish(event.DayChanged{Day: 3})

	assert.Equal(t, []int{2, 3}, days)
}

func TestSinksFanOut(t *testing.T) {
	var first, second []event.Kind
	s := event.Sinks{
		event.SinkFunc(func(e event.Event) { first = append(first, e.Kind()) }),
		event.SinkFunc(func(e event.Event) { second = append(second, e.Kind()) }),
	}

	s.Publish(event.MinuteChanged{Total: 1})
	s.Publish(event.HourChanged{Hour: 1, Day: 1})

	want := []event.Kind{event.KindMinuteChanged, event.KindHourChanged}
	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
}
