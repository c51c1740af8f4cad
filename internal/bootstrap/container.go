package bootstrap

import (
	"context"
	"log"

	"paperchat/internal/config"
	"paperchat/internal/controller"
	"paperchat/internal/handler"
	"paperchat/internal/pkg/logger"
	"paperchat/internal/pkg/serverutils"
	"paperchat/internal/repository/contract"
	"paperchat/internal/repository/implementation"
	"paperchat/internal/service"
	"paperchat/internal/websocket"
	"paperchat/pkg/chat/exchange"
	"paperchat/pkg/chat/history"
	"paperchat/pkg/chat/session"
	pktNats "paperchat/pkg/nats"
	"paperchat/pkg/remote"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController
	JwtMiddleware  fiber.Handler

	// Background Services (Exposed for main.go to run)
	SessionEventConsumer service.ISessionEventConsumer

	// WebSockets
	SessionEventHandler *handler.SessionEventHandler
	WebSocketHub        *websocket.Hub

	Logger logger.ILogger

	store   contract.BlobStore
	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
	rdb     *redis.Client
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. Infrastructure
	rdb := NewRedisClient(cfg.App.RedisURL)
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	store, err := NewBlobStore(cfg.Index, rdb)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Using session index driver: %s", cfg.Index.Driver)

	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
	}

	// 3. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/session_events.log")
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 4. Chat Core
	authority := remote.NewClient(cfg.Remote.BaseURL)
	resolver := session.NewResolver(authority, cfg.Remote.VerifyTimeout, sysLogger)
	historyLoader := history.NewLoader(authority, sysLogger)
	eventPublisher := service.NewSessionEventPublisher(pubSub, cfg.App.EventTopic, natsPub, wsLogger)
	coordinator := exchange.NewCoordinator(authority, sysLogger, exchange.WithListener(eventPublisher))

	newIndex := func(scope string) contract.SessionIndexRepository {
		return implementation.NewSessionIndexRepository(store, scope, sysLogger)
	}
	chatService := service.NewChatService(authority, newIndex, resolver, historyLoader, coordinator, sysLogger,
		service.WithScopeIdleTTL(cfg.App.ScopeIdleTTL),
	)

	consumer := service.NewSessionEventConsumer(pubSub, cfg.App.EventTopic, wsHub, wsLogger)

	// 5. Controllers
	return &Container{
		ChatController:       controller.NewChatController(chatService),
		JwtMiddleware:        serverutils.NewJwtMiddleware(cfg.App.JwtSecret),
		SessionEventConsumer: consumer,
		SessionEventHandler:  handler.NewSessionEventHandler(wsHub, cfg.App.JwtSecret, wsLogger),
		WebSocketHub:         wsHub,
		Logger:               sysLogger,

		store:   store,
		pubSub:  pubSub,
		natsPub: natsPub,
		rdb:     rdb,
	}, nil
}

// Close releases the infrastructure in reverse order of creation.
func (c *Container) Close() {
	if err := c.pubSub.Close(); err != nil {
		log.Printf("[WARN] Failed to close event bus: %v", err)
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if err := c.store.Close(); err != nil {
		log.Printf("[WARN] Failed to close session index store: %v", err)
	}
	if c.rdb != nil {
		c.rdb.Close()
	}
	c.Logger.Sync()
}
