package bootstrap

import (
	"context"
	"log"

	"ai-critic-be/internal/config"
	"ai-critic-be/internal/controller"
	"ai-critic-be/internal/handler"
	"ai-critic-be/internal/observability"
	"ai-critic-be/internal/pkg/logger"
	"ai-critic-be/internal/repository/implementation"
	"ai-critic-be/internal/repository/memory"
	redisRepo "ai-critic-be/internal/repository/redis"
	"ai-critic-be/internal/service"
	"ai-critic-be/internal/websocket"
	"ai-critic-be/pkg/analysis"
	"ai-critic-be/pkg/analysis/session"
	"ai-critic-be/pkg/changes"
	"ai-critic-be/pkg/critic"
	"ai-critic-be/pkg/llm"
	"ai-critic-be/pkg/llm/factory"

	pktNats "ai-critic-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AnalysisController controller.IAnalysisController
	DocumentController controller.IDocumentController
	CriticController   controller.ICriticController

	// Background services, started by main.go
	ConsumerService service.IConsumerService
	AuditService    *service.AuditService
	CriticService   service.ICriticService

	// Streaming
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub

	Manager *session.Manager
	Logger  logger.ILogger

	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}
	// a nil *Publisher must not reach the services as a non-nil interface
	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = rdb.Close()
		rdb = nil
	}

	// WebSocket Hub
	streamLogger := logger.NewIsolatedLogger(cfg.App.StreamLogFilePath)
	wsHub := websocket.NewHub(rdb, streamLogger)

	// 4. Analysis engine
	registry := critic.NewRegistry(
		critic.NewRepeatedWordCritic(),
		critic.NewLongSentenceCritic(cfg.Analysis.MaxSentenceWords),
	)
	executor := analysis.NewExecutor(sysLogger, analysis.WithRecorder(metrics))
	manager := session.NewManager(
		memory.NewSessionRepository(),
		registry,
		executor,
		session.Config{
			FastTimeout:            cfg.Analysis.FastTimeout,
			FastStragglerGrace:     cfg.Analysis.FastStragglerGrace,
			ResearchTimeout:        cfg.Analysis.ResearchTimeout,
			ResearchStragglerGrace: cfg.Analysis.ResearchStragglerGrace,
			Caps: analysis.TierCaps{
				Fast:     cfg.Analysis.MaxFastWorkers,
				Research: cfg.Analysis.MaxResearchWorkers,
			},
			CleanupDelay: cfg.Analysis.SessionGrace,
		},
		sysLogger,
		session.WithSessionRecorder(metrics),
	)

	var snapshots changes.SnapshotStore
	if cfg.Analysis.SnapshotStore == "redis" && rdb != nil {
		snapshots = redisRepo.NewSnapshotRepository(rdb, cfg.Analysis.SnapshotTTL)
		log.Printf("[INFO] Using Snapshot Store: REDIS")
	} else {
		snapshots = memory.NewSnapshotRepository(cfg.Analysis.SnapshotTTL)
		log.Printf("[INFO] Using Snapshot Store: MEMORY")
	}
	tracker := changes.NewTracker(snapshots)
	suggestionRepo := memory.NewSuggestionRepository(cfg.Analysis.SnapshotTTL)

	// LLM critics are optional; without a provider only built-ins run
	baseURL := cfg.Ai.OllamaBaseURL
	if cfg.Ai.LLMProvider != "ollama" {
		baseURL = cfg.Ai.LLMBaseURL
	}
	var llmProvider llm.LLMProvider
	if p, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, baseURL, cfg.Keys.HuggingFace); err != nil {
		log.Printf("[WARN] Failed to initialize LLM Provider: %v", err)
	} else {
		llmProvider = p
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	}

	// 5. Services
	streamPublisher := service.NewStreamPublisher(cfg.Analysis.StreamTopic, pubSub)
	consumerService := service.NewConsumerService(pubSub, cfg.Analysis.StreamTopic, wsHub, streamLogger)

	documentService := service.NewDocumentService(
		tracker,
		suggestionRepo,
		streamPublisher,
		eventPublisher,
		metrics,
		cfg.Analysis.ReAnchorThreshold,
		sysLogger,
	)
	analysisService := service.NewAnalysisService(
		manager,
		documentService,
		streamPublisher,
		eventPublisher,
		sysLogger,
	)
	criticService := service.NewCriticService(
		implementation.NewCriticRepository(db),
		registry,
		llmProvider,
		cfg.Analysis.ReAnchorThreshold,
		sysLogger,
	)

	var auditService *service.AuditService
	if natsSub != nil {
		auditService = service.NewAuditService(natsSub, sysLogger)
	}

	// 6. Controllers
	return &Container{
		AnalysisController: controller.NewAnalysisController(analysisService),
		DocumentController: controller.NewDocumentController(documentService),
		CriticController:   controller.NewCriticController(criticService),

		ConsumerService: consumerService,
		AuditService:    auditService,
		CriticService:   criticService,

		StreamHandler: handler.NewStreamHandler(wsHub, cfg.App.JwtSecret, streamLogger),
		WebSocketHub:  wsHub,

		Manager: manager,
		Logger:  sysLogger,

		pubSub:  pubSub,
		natsPub: natsPub,
		natsSub: natsSub,
		rdb:     rdb,
	}
}

// Close stops running analyses, then releases the transports.
func (c *Container) Close() {
	c.Manager.Shutdown()
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if err := c.pubSub.Close(); err != nil {
		log.Printf("[WARN] Failed to close stream bus: %v", err)
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.Logger.Sync()
}
