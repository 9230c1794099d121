package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ConsoleChannel logs alerts through the operator console (structured
// logging), used for watch-commander stations and as a fallback when
// no external channel is configured.
type ConsoleChannel struct{}

// NewConsoleChannel builds a console channel.
func NewConsoleChannel() *ConsoleChannel { return &ConsoleChannel{} }

func (c *ConsoleChannel) Name() string { return "console" }

// Send writes the alert to the structured log at a level matching its
// severity.
func (c *ConsoleChannel) Send(ctx context.Context, alert Alert) error {
	evt := log.Info()
	switch alert.Severity {
	case "critical", "emergency":
		evt = log.Error()
	case "warning":
		evt = log.Warn()
	}
	evt.Str("source", alert.Source).
		Str("severity", alert.Severity).
		Time("raised_at", alert.RaisedAt).
		Interface("metadata", alert.Metadata).
		Msg(alert.Title)
	return nil
}
