package events

import (
	"context"
	"sync"
)

// NoopPublisher discards events; used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

// Recorder keeps published events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

type Recorded struct {
	Topic string
	Event any
}

func (r *Recorder) Publish(_ context.Context, topic string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Topic: topic, Event: event})
	return nil
}

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

func (r *Recorder) Close() error { return nil }
