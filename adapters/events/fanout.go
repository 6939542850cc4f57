package events

import (
	"context"
	"errors"

	"cropadvisor/ports"
)

// Fanout publishes every event to each of its publishers in order. One
// failing publisher does not stop delivery to the others; the errors are
// joined.
type Fanout struct {
	publishers []ports.EventPublisher
}

// NewFanout creates a publisher over publishers, skipping nil entries
func NewFanout(publishers ...ports.EventPublisher) *Fanout {
	f := &Fanout{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

func (f *Fanout) Publish(ctx context.Context, event ports.RecommendationEvent) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
