package bootstrap

import (
	"context"
	"fmt"

	"saas-notes-be/internal/config"
	"saas-notes-be/internal/controller"
	"saas-notes-be/internal/pkg/logger"
	"saas-notes-be/internal/pkg/serverutils"
	"saas-notes-be/internal/repository/factory"
	"saas-notes-be/internal/service"

	pktNats "saas-notes-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	Logger logger.ILogger
	Store  *factory.Provider

	// Controllers
	NoteController   controller.INoteController
	HealthController controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
}

// NewContainer wires the application from configuration: a zap logger
// writing to cfg.App.LogFilePath and the store backend named in cfg.Store.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	return Build(ctx, cfg, sysLogger, factory.NewProvider(cfg.Store, sysLogger))
}

// Build wires the application around an existing logger and store provider.
// The store is constructed eagerly so configuration errors surface at
// startup.
func Build(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger, store *factory.Provider) (*Container, error) {
	// 1. Auth. An unsigned deployment would trust any token.
	auth, err := serverutils.NewJwtMiddleware(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}

	// 2. Storage
	if _, err := store.Get(ctx); err != nil {
		return nil, fmt.Errorf("init notes store: %w", err)
	}

	// 3. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		logger.NewWatermillAdapter(sysLogger, "EVENTS"),
	)

	// Optional external forwarding
	var natsPub *pktNats.Publisher
	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher, events stay in-process", map[string]interface{}{
				"url":   cfg.App.NatsURL,
				"error": err.Error(),
			})
		} else {
			forwarder = natsPub
		}
	}

	// 4. Services
	publisherService := service.NewPublisherService(pubSub, cfg.App.EventsTopic, forwarder, sysLogger)
	consumerService := service.NewConsumerService(pubSub, cfg.App.EventsTopic, sysLogger)
	noteService := service.NewNoteService(store, publisherService, sysLogger)

	// 5. Controllers
	return &Container{
		Logger:           sysLogger,
		Store:            store,
		NoteController:   controller.NewNoteController(noteService, auth),
		HealthController: controller.NewHealthController(store),
		ConsumerService:  consumerService,
		pubSub:           pubSub,
		natsPub:          natsPub,
	}, nil
}

// Close releases the event bus and the NATS connection and flushes logs.
func (c *Container) Close() error {
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	err := c.pubSub.Close()
	_ = c.Logger.Sync()
	return err
}
