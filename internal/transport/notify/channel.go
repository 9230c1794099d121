// Package notify delivers supervisor and command-staff alerts raised
// by the dispatch engine, following the teacher's
// internal/notifications hardened-webhook-client conventions: bounded
// redirects, a private-network allowlist, and a request timeout.
package notify

import (
	"context"
	"time"
)

// Alert is a single notification to deliver to a human channel.
type Alert struct {
	Source    string
	Severity  string
	Title     string
	Body      string
	RaisedAt  time.Time
	Metadata  map[string]any
}

// Channel delivers an Alert to a human-facing destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

// Dispatcher fans an alert out to every registered channel and
// collects per-channel delivery errors without letting one failing
// channel block the others.
type Dispatcher struct {
	channels []Channel
}

// NewDispatcher builds a dispatcher over the given channels.
func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

// DeliveryError reports a single channel's failure to deliver.
type DeliveryError struct {
	Channel string
	Err     error
}

// Dispatch sends alert to every channel, returning one DeliveryError
// per channel that failed. A nil/empty return means full delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert) []DeliveryError {
	var errs []DeliveryError
	for _, ch := range d.channels {
		if err := ch.Send(ctx, alert); err != nil {
			errs = append(errs, DeliveryError{Channel: ch.Name(), Err: err})
		}
	}
	return errs
}
