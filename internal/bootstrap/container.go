package bootstrap

import (
	"fmt"
	"log"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ai-researcher-be/internal/config"
	"ai-researcher-be/internal/pkg/logger"
	"ai-researcher-be/internal/repository/memory"
	"ai-researcher-be/internal/service"
	ws "ai-researcher-be/internal/websocket"
	embeddingfactory "ai-researcher-be/pkg/embedding/factory"
	"ai-researcher-be/pkg/export"
	llmfactory "ai-researcher-be/pkg/llm/factory"
	"ai-researcher-be/pkg/nats"
	"ai-researcher-be/pkg/researcher"
)

// Container wires every component once at startup and hands the server
// what it needs.
type Container struct {
	Cfg *config.Config
	Log logger.ILogger

	PubSub          *gochannel.GoChannel
	ReportService   *service.ReportService
	ConsumerService *service.ConsumerService
	WsManager       *ws.Manager
	WsHandler       *ws.Handler

	natsPublisher *nats.Publisher
	wsLog         logger.ILogger
}

func SetupContainer(cfg *config.Config) (*Container, error) {
	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	runLog := log.New(os.Stdout, "", log.LstdFlags)

	provider, err := llmfactory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.OpenAI,
	)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	embedder, err := embeddingfactory.NewEmbeddingProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.EmbeddingModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	retriever := researcher.NewCachedRetriever(researcher.NewHTTPRetriever(cfg.Research.RetrieverURL))

	conversations := memory.NewConversationRepository()

	exporter := &export.Exporter{
		OutputDir: cfg.App.OutputDir,
		Logger:    runLog,
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	// NATS is an optional mirror; a dead broker never blocks startup.
	var sink service.EventSink
	natsPublisher, err := nats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		appLogger.Warn("bootstrap", "NATS unavailable, lifecycle mirroring disabled", map[string]any{
			"url":   cfg.App.NatsURL,
			"error": err.Error(),
		})
	} else {
		sink = natsPublisher
	}

	reportService := service.NewReportService(
		cfg,
		appLogger,
		provider,
		embedder,
		retriever,
		conversations,
		exporter,
		pubSub,
		nil, // no multi-agent runner configured
		runLog,
	)
	consumerService := service.NewConsumerService(pubSub, sink, appLogger)

	// Connection chatter goes to its own file so the main log stays readable.
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	wsManager := ws.NewManager(wsLogger, cfg.App.SendQueueSize)
	wsHandler := ws.NewHandler(wsManager, reportService, wsLogger)

	return &Container{
		Cfg:             cfg,
		Log:             appLogger,
		PubSub:          pubSub,
		ReportService:   reportService,
		ConsumerService: consumerService,
		WsManager:       wsManager,
		WsHandler:       wsHandler,
		natsPublisher:   natsPublisher,
		wsLog:           wsLogger,
	}, nil
}

// Close releases long-lived resources in reverse wiring order.
func (c *Container) Close() {
	c.WsManager.Shutdown()
	if c.PubSub != nil {
		c.PubSub.Close()
	}
	if c.natsPublisher != nil {
		c.natsPublisher.Close()
	}
	c.wsLog.Sync()
	c.Log.Sync()
}
