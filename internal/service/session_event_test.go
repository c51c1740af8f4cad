package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"paperchat/internal/pkg/logger"
	"paperchat/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivered struct {
	scope string
	event events.BaseEvent
}

type fakeDelivery struct {
	mu  sync.Mutex
	got []delivered
}

func (d *fakeDelivery) Send(scope string, payload []byte) {
	event, err := events.Decode(payload)
	if err != nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, delivered{scope: scope, event: event})
}

func (d *fakeDelivery) snapshot() []delivered {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivered(nil), d.got...)
}

func TestSessionEventsReachScopedConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()

	delivery := &fakeDelivery{}
	consumer := NewSessionEventConsumer(pubSub, "SESSION_LIST", delivery, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewSessionEventPublisher(pubSub, "SESSION_LIST", nil, logger.NewNopLogger())

	publisher.OnNewSession(events.WithScope(ctx, "user-1"), "S1", "What is it?", "Attention")
	publisher.OnSessionUpdated(ctx, "S1", "unscoped")
	require.NoError(t, pubSub.Publish("SESSION_LIST", message.NewMessage(watermill.NewUUID(), []byte("garbage"))))
	publisher.OnSessionUpdated(events.WithScope(ctx, "user-1"), "S1", "Follow up")

	require.Eventually(t, func() bool {
		return len(delivery.snapshot()) == 2
	}, time.Second, 10*time.Millisecond)

	byType := make(map[string]delivered)
	for _, d := range delivery.snapshot() {
		assert.Equal(t, "user-1", d.scope)
		byType[d.event.Type] = d
	}
	require.Contains(t, byType, events.TypeSessionCreated)
	require.Contains(t, byType, events.TypeSessionUpdated)
	assert.Equal(t, "Attention", byType[events.TypeSessionCreated].event.Data["title"])
	assert.Equal(t, "Follow up", byType[events.TypeSessionUpdated].event.Data["preview"])
}
