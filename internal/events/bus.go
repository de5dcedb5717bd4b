package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is an in-process domain event fanned out to notifiers.
type Event struct {
	ID      string    `json:"id"`
	Topic   string    `json:"topic"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Notifier receives emitted events. Notifier failures are logged and never
// propagate to the emitter.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Bus fans events out to its notifiers synchronously, in registration order.
type Bus struct {
	log       zerolog.Logger
	notifiers []Notifier
	now       func() time.Time
}

// NewBus constructs a bus with the given notifiers.
func NewBus(log zerolog.Logger, notifiers ...Notifier) *Bus {
	return &Bus{log: log, notifiers: notifiers, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (b *Bus) WithNow(now func() time.Time) *Bus {
	b.now = now
	return b
}

// Emit delivers an event to every notifier. Individual notifier errors are
// logged and do not stop delivery to the rest.
func (b *Bus) Emit(ctx context.Context, topic string, payload any) Event {
	e := Event{
		ID:      uuid.NewString(),
		Topic:   topic,
		At:      b.now(),
		Payload: payload,
	}
	for _, n := range b.notifiers {
		if err := n.Notify(ctx, e); err != nil {
			b.log.Error().Err(err).
				Str("event_id", e.ID).
				Str("topic", e.Topic).
				Msg("event notifier failed")
		}
	}
	return e
}
