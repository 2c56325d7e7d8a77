// Package notify routes console notices to the toast stack and the
// persisted notification history.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/colonyops/sage/internal/core/notify"
	"github.com/rs/zerolog/log"
)

// Subscriber is a callback invoked when a notification is published.
type Subscriber func(notify.Notification)

// Bus is a synchronous in-process notification bus. It persists each
// notification to a Store and then dispatches it to subscribers inline, so
// it is safe to call from the Bubble Tea Update loop.
type Bus struct {
	store       notify.Store
	limit       int
	now         func() time.Time
	subscribers []Subscriber
	mu          sync.Mutex
}

// NewBus creates a notification bus backed by the given store. The history
// is capped at notify.HistoryLimit. If store is nil, notifications are
// dispatched to subscribers but not persisted.
func NewBus(store notify.Store) *Bus {
	return &Bus{store: store, limit: notify.HistoryLimit, now: time.Now}
}

// Subscribe registers a callback that will be invoked on every Publish.
func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// Publish persists a notification and dispatches it to all subscribers.
func (b *Bus) Publish(n notify.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = b.now()
	}

	// Persist first so the notification has an ID for subscribers.
	if b.store != nil {
		id, err := b.store.Save(context.Background(), n)
		if err != nil {
			log.Error().Err(err).Str("message", n.Message).Msg("failed to persist notification")
		} else {
			n.ID = id
			b.prune()
		}
	}

	b.mu.Lock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

func (b *Bus) prune() {
	if b.limit <= 0 {
		return
	}
	if _, err := b.store.Prune(context.Background(), b.limit); err != nil {
		log.Warn().Err(err).Int("keep", b.limit).Msg("failed to prune notification history")
	}
}

// Source returns a publisher that tags notifications with source.
func (b *Bus) Source(source string) Publisher {
	return Publisher{bus: b, source: source}
}

// History returns all persisted notifications (newest first).
// Returns nil if no store is configured.
func (b *Bus) History() ([]notify.Notification, error) {
	if b.store == nil {
		return nil, nil
	}
	return b.store.List(context.Background())
}

// Clear deletes all persisted notifications.
func (b *Bus) Clear() error {
	if b.store == nil {
		return nil
	}
	return b.store.Clear(context.Background())
}

// Publisher publishes notifications for one console area.
type Publisher struct {
	bus    *Bus
	source string
}

func (p Publisher) publish(level notify.Level, msg string) {
	p.bus.Publish(notify.Notification{Source: p.source, Level: level, Message: msg})
}

// Errorf publishes an error-level notification.
func (p Publisher) Errorf(format string, args ...any) {
	p.publish(notify.LevelError, fmt.Sprintf(format, args...))
}

// Warnf publishes a warning-level notification.
func (p Publisher) Warnf(format string, args ...any) {
	p.publish(notify.LevelWarning, fmt.Sprintf(format, args...))
}

// Infof publishes an info-level notification.
func (p Publisher) Infof(format string, args ...any) {
	p.publish(notify.LevelInfo, fmt.Sprintf(format, args...))
}

// summarizer is implemented by errors that carry a short user-facing
// message, such as gateway errors.
type summarizer interface {
	Summary() string
}

// Error publishes err prefixed with what failed. Errors that know their own
// summary are shown by it instead of the full wrapped chain.
func (p Publisher) Error(what string, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	var s summarizer
	if errors.As(err, &s) {
		msg = s.Summary()
	}
	p.publish(notify.LevelError, what+": "+msg)
}
