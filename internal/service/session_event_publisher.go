package service

import (
	"context"
	"time"

	"paperchat/internal/pkg/logger"
	"paperchat/pkg/events"
	pktNats "paperchat/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
)

const eventsModule = "Events"

// SessionEventPublisher turns session list callbacks into events on the
// in-process bus and, when configured, on NATS.
type SessionEventPublisher struct {
	pubSub message.Publisher
	topic  string
	nats   *pktNats.Publisher
	logger logger.ILogger
	now    func() time.Time
}

func NewSessionEventPublisher(pubSub message.Publisher, topic string, natsPub *pktNats.Publisher, log logger.ILogger) *SessionEventPublisher {
	return &SessionEventPublisher{
		pubSub: pubSub,
		topic:  topic,
		nats:   natsPub,
		logger: log,
		now:    time.Now,
	}
}

func (p *SessionEventPublisher) OnNewSession(ctx context.Context, sessionId, preview, title string) {
	p.publish(ctx, events.NewSessionCreated(events.ScopeFromContext(ctx), sessionId, preview, title, p.now()))
}

func (p *SessionEventPublisher) OnSessionUpdated(ctx context.Context, sessionId, preview string) {
	p.publish(ctx, events.NewSessionUpdated(events.ScopeFromContext(ctx), sessionId, preview, p.now()))
}

func (p *SessionEventPublisher) publish(ctx context.Context, event events.BaseEvent) {
	payload, err := events.Encode(event)
	if err != nil {
		p.logger.Error(eventsModule, "Failed to encode session event", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(event.ID, payload)
	if err := p.pubSub.Publish(p.topic, msg); err != nil {
		p.logger.Error(eventsModule, "Failed to publish session event", map[string]interface{}{
			"type":  event.Type,
			"topic": p.topic,
			"error": err.Error(),
		})
	}

	if p.nats == nil {
		return
	}
	// the exchange is already done; a cancelled request must not drop the event
	natsCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.nats.Publish(natsCtx, event); err != nil {
		p.logger.Warn(eventsModule, "Failed to publish session event to NATS", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}
