package bootstrap

import (
	"context"
	"log"
	"time"

	"smart-meal-be/internal/config"
	"smart-meal-be/internal/controller"
	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/handler"
	"smart-meal-be/internal/pkg/logger"
	"smart-meal-be/internal/repository/contract"
	"smart-meal-be/internal/repository/durable"
	"smart-meal-be/internal/repository/fallback"
	"smart-meal-be/internal/repository/memory"
	"smart-meal-be/internal/repository/unitofwork"
	"smart-meal-be/internal/service"
	"smart-meal-be/internal/websocket"
	"smart-meal-be/pkg/bargain"
	"smart-meal-be/pkg/capability"
	"smart-meal-be/pkg/database"
	"smart-meal-be/pkg/filestore"
	"smart-meal-be/pkg/llm"
	"smart-meal-be/pkg/llm/factory"

	pktNats "smart-meal-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	RecipeController  controller.IRecipeController
	AdminController   controller.IAdminController
	HealthController  controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	SessionStreamHandler *handler.SessionStreamHandler
	WebSocketHub         *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires every component. db may be nil, in which case sessions
// live in memory only.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 1. Session storage
	var durableStore contract.SessionStore
	var schema service.SchemaResetter
	var ping controller.Pinger
	if db != nil {
		s := database.NewSchema(db)
		if err := s.Migrate(context.Background()); err != nil {
			// Keep the durable backend; per-operation fallback covers an outage.
			sysLogger.Warn("BOOTSTRAP", "Schema migration failed", map[string]interface{}{"error": err.Error()})
		}
		durableStore = durable.NewSessionStore(unitofwork.NewRepositoryFactory(db))
		schema = s
		ping = func(ctx context.Context) error { return database.Ping(ctx, db) }
	} else {
		log.Println("[WARN] DB_CONNECTION_STRING not set, sessions are kept in memory only")
	}
	store := fallback.NewSessionStore(durableStore, memory.NewSessionRepository(), sysLogger)

	images, err := filestore.NewLocalStore(cfg.App.UploadDir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to prepare upload dir %s: %v", cfg.App.UploadDir, err)
	}

	// 2. Capability gateway
	var provider llm.VisionProvider
	if cfg.Ai.LLMProvider == "ollama" || capability.IsUsableCredential(cfg.Keys.GoogleGemini) {
		baseURL := ""
		if cfg.Ai.LLMProvider == "ollama" {
			baseURL = cfg.Ai.OllamaBaseURL
		}
		p, err := factory.NewVisionProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, baseURL, cfg.Keys.GoogleGemini)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Model provider unavailable, using mock mode", map[string]interface{}{"error": err.Error()})
		} else {
			provider = p
		}
	}
	gateway := capability.NewGateway(provider, images, sysLogger,
		capability.WithRateLimit(cfg.Ai.RatePerSecond),
		capability.WithMockLatency(cfg.Ai.MockLatency),
	)
	log.Printf("[INFO] Capability gateway mode: %s (%s)", gateway.Mode(), cfg.Ai.LLMProvider)

	// 3. Event bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 64,
			// Status pushes must reach watchers in transition order.
			BlockPublishUntilSubscriberAck: true,
		},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { pubSub.Close() })

	var bus service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			bus = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
			rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, func() { rdb.Close() })
		}
		cancel()
	}

	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// 4. Services
	policy := entity.ParseRerunPolicy(cfg.Analysis.RerunPolicy)
	publisherService := service.NewPublisherService(pubSub, service.SessionEventsTopic, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, service.SessionEventsTopic, c.WebSocketHub, bus, sysLogger)

	sessionService := service.NewSessionService(store, images, publisherService, policy, sysLogger)
	analysisService := service.NewAnalysisService(store, gateway, bargain.NewStaticProvider(), publisherService, policy, sysLogger)
	recipeService := service.NewRecipeService(gateway)
	adminService := service.NewAdminService(store, schema, cfg.IsProduction(), sysLogger)

	// 5. Controllers
	c.SessionController = controller.NewSessionController(sessionService, analysisService)
	c.RecipeController = controller.NewRecipeController(recipeService)
	c.AdminController = controller.NewAdminController(adminService)
	c.HealthController = controller.NewHealthController(ping, gateway.Mode)
	c.SessionStreamHandler = handler.NewSessionStreamHandler(c.WebSocketHub, wsLogger)

	return c
}

// Close releases bus and cache connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
