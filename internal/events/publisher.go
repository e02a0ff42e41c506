package events

import (
	"context"
	"encoding/json"
	"log"
)

// Publisher hands domain events to the notification collaborator.
// Implementations must not block resolution: failures are logged and dropped.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// LogPublisher writes events to the process log. It stands in for the
// notification fan-out service in development and tests.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Events] Failed to marshal %s: %v", event.EventName(), err)
		return
	}
	log.Printf("[Events] %s %s", event.EventName(), payload)
}

// Recorder captures published events for tests
type Recorder struct {
	Events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event Event) {
	r.Events = append(r.Events, event)
}

// Named returns all recorded events with the given name
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}
