//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"landlock/internal/audit"
	"landlock/pkg/domain"
	"landlock/pkg/testutil/containers"
)

func TestKafkaPublisherDelivers(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx := context.Background()

	publisher, err := audit.NewKafkaPublisher(ctx, []string{rp.Broker}, "landlock.audit.test", slog.Default())
	require.NoError(t, err)
	t.Cleanup(publisher.Close)

	actor := domain.PublicKey("kafka-test-actor")
	require.NoError(t, publisher.Emit(ctx, audit.Event{
		Action:  audit.ActionTitleAssigned,
		Actor:   actor,
		Subject: "deed-address",
		Details: map[string]string{"title_number": "LT-100"},
	}))
	require.NoError(t, publisher.Flush(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics("landlock.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, []byte(actor), records[0].Key)

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, audit.ActionTitleAssigned, got.Action)
	require.Equal(t, actor, got.Actor)
	require.Equal(t, "deed-address", got.Subject)
	require.NotEmpty(t, got.ID, "emit should stamp an event id")
	require.False(t, got.Timestamp.IsZero())
}
