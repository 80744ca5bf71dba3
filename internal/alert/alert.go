// Package alert carries risk and operational warnings off the hot path.
// It is adapted from the teacher's event bus down to the single
// dedicated channel the engine's risk gate and grid need: one severity-
// tagged stream, published non-blocking with a drop counter rather than
// a general pub/sub bus with per-type subscribers.
package alert

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Severity classifies an Event for the status surface and for deciding
// whether a human needs to be paged.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is a single alert emitted by a component.
type Event struct {
	Severity Severity
	Code     string
	Message  string
	Fields   map[string]any
}

// Sink accepts alerts. Components depend on this interface, not on
// ChannelSink, so tests can substitute a recording fake.
type Sink interface {
	Publish(e Event)
}

// ChannelSink buffers alerts on a bounded channel and logs a drop
// counter when the buffer is full, mirroring the teacher's EventBus.Publish
// non-blocking select/default pattern.
type ChannelSink struct {
	logger    *zap.Logger
	ch        chan Event
	published atomic.Int64
	dropped   atomic.Int64
}

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(logger *zap.Logger, capacity int) *ChannelSink {
	return &ChannelSink{
		logger: logger.Named("alert"),
		ch:     make(chan Event, capacity),
	}
}

// Publish enqueues e, dropping it (and logging a warning) if the buffer
// is full rather than blocking the caller's hot path.
func (s *ChannelSink) Publish(e Event) {
	select {
	case s.ch <- e:
		s.published.Add(1)
	default:
		s.dropped.Add(1)
		s.logger.Warn("alert dropped, buffer full",
			zap.String("code", e.Code),
			zap.String("severity", string(e.Severity)),
		)
	}
}

// Events exposes the channel for a consumer loop (e.g. the status
// surface's fan-out to connected websocket clients) to range over.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Stats returns the published/dropped counters for the metrics package.
func (s *ChannelSink) Stats() (published, dropped int64) {
	return s.published.Load(), s.dropped.Load()
}
