package bootstrap

import (
	"context"
	"log"

	"health-agent-be/internal/config"
	"health-agent-be/internal/controller"
	"health-agent-be/internal/pkg/logger"
	"health-agent-be/internal/repository/memory"
	"health-agent-be/internal/service"
	"health-agent-be/internal/websocket"
	"health-agent-be/pkg/agent"
	"health-agent-be/pkg/embedding"
	"health-agent-be/pkg/knowledge"
	"health-agent-be/pkg/llm/ollama"
	"health-agent-be/pkg/weather"

	pktNats "health-agent-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	HealthController   controller.IHealthController
	DocumentController controller.IDocumentController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
}

// NewContainer wires the whole dependency graph. db may be nil when the
// local file index backend is configured.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI providers
	embeddingProvider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	log.Printf("[INFO] Using embedding model: %s", cfg.Ai.EmbeddingModel)

	llmProvider := ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel)
	log.Printf("[INFO] Using LLM model: %s", cfg.Ai.LLMModel)

	// 4. Knowledge index
	knowledgeStore := newKnowledgeStore(db, cfg, sysLogger)
	index := knowledge.NewIndex(knowledgeStore, embeddingProvider, cfg.Rag.SimilarityK, sysLogger)

	// 5. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS subscriber: %v", err)
	}

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
		rdb = nil
	}

	wsLogger := logger.NewIsolatedLogger("logs/stream.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 6. Services
	sessionRepo := memory.NewSessionRepository()

	advisor := weather.NewAdvisor(cfg.Weather, llmProvider, cfg.Ai.ModelTemperature, sysLogger)
	pipeline := agent.NewHealthPipeline(advisor, index, llmProvider, cfg, sysLogger)

	recommendationService := service.NewRecommendationService(
		pipeline,
		advisor,
		sessionRepo,
		wsHub,
		natsPub,
		cfg.Weather,
		sysLogger,
	)

	publisherService := service.NewPublisherService(cfg.Rag.IngestTopic, pubSub)
	documentService := service.NewDocumentService(publisherService, sysLogger)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Rag,
		knowledgeStore,
		embeddingProvider,
		natsPub,
	)

	notifService := service.NewNotificationService(natsSub, wsHub, wsLogger)
	if natsSub != nil {
		go notifService.Start()
	}

	// 7. Controllers
	return &Container{
		HealthController:   controller.NewHealthController(recommendationService, wsHub, sysLogger),
		DocumentController: controller.NewDocumentController(documentService),
		WebSocketHub:       wsHub,
		ConsumerService:    consumerService,
	}
}

func newKnowledgeStore(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) knowledge.Store {
	if cfg.Rag.IndexBackend == "postgres" && db != nil {
		store, err := knowledge.NewPostgresStore(db)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize pgvector index: %v", err)
		}
		log.Printf("[INFO] Using knowledge index backend: postgres")
		return store
	}

	store, err := knowledge.NewLocalStore(cfg.Rag.IndexPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load local index %s: %v", cfg.Rag.IndexPath, err)
	}
	sysLogger.Info("Bootstrap", "Local knowledge index loaded", map[string]interface{}{
		"path":   cfg.Rag.IndexPath,
		"chunks": store.Count(),
	})
	return store
}
