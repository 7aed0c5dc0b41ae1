package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"landlock/internal/audit"
	"landlock/internal/audit/mocks"
	"landlock/pkg/domain"
	"landlock/pkg/requestcontext"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerDrainsInboxIntoStore(t *testing.T) {
	store := audit.NewInMemoryStore()
	publisher := audit.NewChannelPublisher(16)
	worker := audit.NewWorker(store, publisher.Inbox(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	actor := domain.PublicKey("worker-actor")
	require.NoError(t, publisher.Emit(ctx, audit.Event{
		Action: audit.ActionUserCreated,
		Actor:  actor,
	}))
	require.NoError(t, publisher.Emit(ctx, audit.Event{
		Action: audit.ActionTitleListed,
		Actor:  actor,
	}))

	require.Eventually(t, func() bool {
		events, err := store.ListByActor(context.Background(), actor)
		return err == nil && len(events) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	events, err := store.ListByActor(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, audit.ActionUserCreated, events[0].Action)
	assert.NotEmpty(t, events[0].ID, "emit should stamp an event id")
}

func TestChannelPublisherNeverBlocks(t *testing.T) {
	publisher := audit.NewChannelPublisher(1)
	ctx := context.Background()

	require.NoError(t, publisher.Emit(ctx, audit.Event{Action: audit.ActionUserCreated}))
	// Inbox is full and nothing is draining it; the second emit is dropped
	// rather than stalling the request path.
	require.NoError(t, publisher.Emit(ctx, audit.Event{Action: audit.ActionTitleListed}))

	select {
	case event := <-publisher.Inbox():
		assert.Equal(t, audit.ActionUserCreated, event.Action)
	default:
		t.Fatal("expected one buffered event")
	}
	select {
	case event := <-publisher.Inbox():
		t.Fatalf("unexpected second event %q", event.Action)
	default:
	}
}

func TestStorePublisherEnrichesFromRequestContext(t *testing.T) {
	store := audit.NewInMemoryStore()
	publisher := audit.NewStorePublisher(store)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-123")

	actor := domain.PublicKey("enriched-actor")
	require.NoError(t, publisher.Emit(ctx, audit.Event{
		Action: audit.ActionAdminConfirmed,
		Actor:  actor,
	}))

	events, err := store.ListByActor(ctx, actor)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-123", events[0].RequestID)
}

func TestFanoutEmitsToEveryPublisher(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocks.NewMockPublisher(ctrl)
	second := mocks.NewMockPublisher(ctrl)

	event := audit.Event{Action: audit.ActionEscrowCreated, Actor: domain.PublicKey("fanout-actor")}
	boom := errors.New("kafka down")
	first.EXPECT().Emit(gomock.Any(), event).Return(boom)
	second.EXPECT().Emit(gomock.Any(), event).Return(nil)

	err := audit.Fanout(first, second).Emit(context.Background(), event)
	assert.ErrorIs(t, err, boom)
}
