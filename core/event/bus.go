package event

import (
	evbus "github.com/asaskevich/EventBus"
)

// Topic returns the bus topic an event kind is published under.
func Topic(k Kind) string {
	return "time." + k.String()
}

// BusSink publishes events to an EventBus, one topic per kind.
// Subscriptions made with Subscribe (synchronous handlers) observe
// events in emission order.
type BusSink struct {
	bus evbus.Bus
}

func NewBusSink(bus evbus.Bus) *BusSink {
	if bus == nil {
		panic("event bus must not be nil")
	}
	return &BusSink{bus: bus}
}

func (s *BusSink) Publish(e Event) {
	s.bus.Publish(Topic(e.Kind()), e)
}
