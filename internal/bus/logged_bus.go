package bus

import (
	"context"

	"github.com/awardintel/award-engine/internal/pkg/logger"
)

// LoggedBus records every published event in a Journal before handing it
// to the wrapped bus. Journal failures are logged and never block delivery.
type LoggedBus struct {
	inner   Bus
	journal *Journal
	log     *logger.Logger
}

// NewLoggedBus wraps inner so that publishes are journaled.
func NewLoggedBus(inner Bus, journal *Journal, log *logger.Logger) *LoggedBus {
	if log == nil {
		log = logger.Default()
	}
	return &LoggedBus{
		inner:   inner,
		journal: journal,
		log:     log,
	}
}

func (b *LoggedBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := b.journal.Append(topic, event); err != nil {
		b.log.Warn("failed to journal event",
			"topic", topic,
			"event_id", event.ID,
			"error", err.Error(),
		)
	}
	return b.inner.Publish(ctx, topic, event)
}

func (b *LoggedBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return b.inner.Subscribe(ctx, topic, handler)
}

// Close closes the wrapped bus, letting in-flight handlers publish, and
// then the journal.
func (b *LoggedBus) Close() error {
	err := b.inner.Close()
	if jerr := b.journal.Close(); jerr != nil {
		b.log.Warn("failed to close journal", "error", jerr.Error())
	}
	return err
}
