// Package metrics mirrors telemetry to external stores.
//
// Every sink is best effort: a failing sink never affects the device link.
package metrics

import (
	"context"
	"errors"
)

// Sink records one named metric value.
type Sink interface {
	Record(ctx context.Context, name, value string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, name, value string) error

func (f SinkFunc) Record(ctx context.Context, name, value string) error {
	return f(ctx, name, value)
}

// Fanout records to every sink in order and joins their errors.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, name, value string) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, name, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
