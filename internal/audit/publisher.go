package audit

import (
	"context"

	"github.com/google/uuid"

	"landlock/pkg/requestcontext"
)

// Publisher is the emitting side services depend on. Emitting is fail-open:
// services log a failed emit but never abort the ledger transaction over it.
//
//go:generate mockgen -source=publisher.go -destination=mocks/publisher_mock.go -package=mocks
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// StorePublisher appends events synchronously to a store. Used directly in
// tests and small deployments.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	return p.store.Append(ctx, enrich(ctx, event))
}

// ChannelPublisher hands events to a background worker. Emit never blocks the
// request path: when the inbox is full the event is dropped (the ledger
// transaction is the source of truth, see Event docs).
type ChannelPublisher struct {
	inbox chan Event
}

func NewChannelPublisher(buffer int) *ChannelPublisher {
	return &ChannelPublisher{inbox: make(chan Event, buffer)}
}

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) error {
	select {
	case p.inbox <- enrich(ctx, event):
	default:
	}
	return nil
}

// Inbox exposes the event channel for the worker.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.inbox
}

// Fanout emits to every publisher in order. The first error is returned after
// all publishers have seen the event; audit emission stays fail-open either way.
func Fanout(publishers ...Publisher) Publisher {
	return fanout(publishers)
}

type fanout []Publisher

func (f fanout) Emit(ctx context.Context, event Event) error {
	var firstErr error
	for _, p := range f {
		if err := p.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// enrich stamps the event with request-scoped metadata and an ID.
func enrich(ctx context.Context, event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}
	return event
}
