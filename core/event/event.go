// Package event defines the closed set of notifications emitted by the
// clock engine when a derived calendar field crosses a boundary.
package event

import "fmt"

type Kind int

const (
	KindMinuteChanged Kind = iota
	KindHourChanged
	KindDayChanged
	KindWeekChanged
	KindMonthChanged
	KindTimeOfDayChanged
	KindTimeManuallySet
)

func (k Kind) String() string {
	switch k {
	case KindMinuteChanged:
		return "minute"
	case KindHourChanged:
		return "hour"
	case KindDayChanged:
		return "day"
	case KindWeekChanged:
		return "week"
	case KindMonthChanged:
		return "month"
	case KindTimeOfDayChanged:
		return "timeofday"
	case KindTimeManuallySet:
		return "manual"
	default:
		panic(fmt.Sprintf("unknown event kind %d", int(k)))
	}
}

// TimeOfDay identifies the named markers of the day cycle.
type TimeOfDay int

const (
	Midnight TimeOfDay = iota
	Dawn
	Morning
	Noon
	Dusk
	Night
)

func (t TimeOfDay) String() string {
	switch t {
	case Midnight:
		return "midnight"
	case Dawn:
		return "dawn"
	case Morning:
		return "morning"
	case Noon:
		return "noon"
	case Dusk:
		return "dusk"
	case Night:
		return "night"
	default:
		panic(fmt.Sprintf("unknown time of day %d", int(t)))
	}
}

// MarkerForHour reports the marker entered at the given hour, if any.
// Markers: midnight=0, dawn=5, morning=6, noon=12, dusk=18, night=22.
func MarkerForHour(hour int) (TimeOfDay, bool) {
	switch hour {
	case 0:
		return Midnight, true
	case 5:
		return Dawn, true
	case 6:
		return Morning, true
	case 12:
		return Noon, true
	case 18:
		return Dusk, true
	case 22:
		return Night, true
	default:
		return 0, false
	}
}

// Event is a tagged variant; each concrete type carries only the
// payload of its own boundary kind.
type Event interface {
	Kind() Kind
}

type MinuteChanged struct {
	Total int64
}

type HourChanged struct {
	Hour int
	Day  int
}

type DayChanged struct {
	Day int
}

type WeekChanged struct {
	Week     int
	FirstDay int
}

type MonthChanged struct {
	Month int
	Year  int
}

type TimeOfDayChanged struct {
	Marker TimeOfDay
	Day    int
}

type TimeManuallySet struct {
	OldTotal int64
	NewTotal int64
	Day      int
	Hour     int
	Minute   int
}

func (MinuteChanged) Kind() Kind    { return KindMinuteChanged }
func (HourChanged) Kind() Kind      { return KindHourChanged }
func (DayChanged) Kind() Kind       { return KindDayChanged }
func (WeekChanged) Kind() Kind      { return KindWeekChanged }
func (MonthChanged) Kind() Kind     { return KindMonthChanged }
func (TimeOfDayChanged) Kind() Kind { return KindTimeOfDayChanged }
func (TimeManuallySet) Kind() Kind  { return KindTimeManuallySet }

// Sink receives events in emission order, on the engine's dispatch
// goroutine. A sink that mutates game state must marshal the work onto
// the goroutine owning that state.
type Sink interface {
	Publish(e Event)
}

type SinkFunc func(e Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Sinks fans one event out to several sinks, in order.
type Sinks []Sink

func (s Sinks) Publish(e Event) {
	for _, sink := range s {
		sink.Publish(e)
	}
}
