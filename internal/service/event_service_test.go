package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"saas-notes-be/internal/pkg/logger"
	"saas-notes-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testTopic = "notes.events.test"

func TestPublishedEventsReachAuditLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := logger.NewFromZap(zap.New(core))

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, NewConsumerService(pubSub, testTopic, log).Consume(ctx))

	publisher := NewPublisherService(pubSub, testTopic, nil, log)
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, publisher.Publish(ctx, events.NoteEvent(events.NoteCreated, "acme", "alice", "n-1", at)))

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Note event").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	entry := logs.FilterMessage("Note event").All()[0]
	details, ok := entry.ContextMap()["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, events.NoteCreated, details["event_type"])
	assert.Equal(t, "acme", details["org_id"])
	assert.Equal(t, "n-1", details["note_id"])
}

func TestConsumerAcksMalformedMessages(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := logger.NewFromZap(zap.New(core))

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, NewConsumerService(pubSub, testTopic, log).Consume(ctx))

	require.NoError(t, pubSub.Publish(testTopic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("Failed to decode note event").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

type failingForwarder struct{ calls int }

func (f *failingForwarder) Publish(ctx context.Context, event events.Event) error {
	f.calls++
	return errors.New("nats unreachable")
}

func TestForwardFailureIsOnlyLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := logger.NewFromZap(zap.New(core))

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	forwarder := &failingForwarder{}
	publisher := NewPublisherService(pubSub, testTopic, forwarder, log)

	err := publisher.Publish(context.Background(), events.NoteEvent(events.NoteDeleted, "acme", "alice", "n-1", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, forwarder.calls)
	assert.Equal(t, 1, logs.FilterMessage("Failed to forward event to NATS").Len())
}
