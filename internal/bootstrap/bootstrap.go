package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/deckgen/internal/config"
	"github.com/kirillkom/deckgen/internal/core/ports"
	"github.com/kirillkom/deckgen/internal/core/usecase"
	"github.com/kirillkom/deckgen/internal/infrastructure/chunking"
	"github.com/kirillkom/deckgen/internal/infrastructure/extractor"
	"github.com/kirillkom/deckgen/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/deckgen/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/deckgen/internal/infrastructure/extractor/xlsx"
	"github.com/kirillkom/deckgen/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/deckgen/internal/infrastructure/llm/openai"
	"github.com/kirillkom/deckgen/internal/infrastructure/queue/nats"
	"github.com/kirillkom/deckgen/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/deckgen/internal/infrastructure/resilience"
	"github.com/kirillkom/deckgen/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/deckgen/internal/infrastructure/vector/memory"
	"github.com/kirillkom/deckgen/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/deckgen/internal/observability/metrics"
)

const serviceName = "deckgen-worker"

type App struct {
	Config  config.Config
	Metrics *metrics.WorkerMetrics

	Queue     ports.MessageQueue
	Repo      ports.DeckJobRepository
	SubmitUC  ports.DeckSubmitter
	ProcessUC ports.DeckProcessor

	closeFn func()
}

// Retrieval is the part of the graph that needs no broker or database.
type Retrieval struct {
	Extractor ports.TextExtractor
	Chunker   ports.Chunker
	Indexes   ports.IndexBuilder
	Pipeline  *usecase.RetrievalPipeline
	Writer    *usecase.DeckContentGenerator
	// Analyzer is nil when DOCUMENT_ANALYSIS is off.
	Analyzer  *usecase.DocumentAnalyzer
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDeckJobRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	brokerExecutor := resilience.NewExecutor(brokerResilienceConfig(cfg))
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: brokerExecutor,
		HandlerTimeout:     time.Duration(cfg.JobTimeoutSeconds) * time.Second,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	retrieval, err := NewRetrieval(cfg, storage, metrics.NewRetrievalMetrics(serviceName, workerMetrics.Registry()))
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	submitUC := usecase.NewSubmitDeckUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDeckUseCase(
		repo,
		retrieval.Extractor,
		retrieval.Chunker,
		retrieval.Indexes,
		retrieval.Pipeline,
		retrieval.Writer,
		retrieval.Analyzer,
	)

	return &App{
		Config:  cfg,
		Metrics: workerMetrics,
		Queue:   queue,
		Repo:    repo,

		SubmitUC:  submitUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewRetrieval wires extractors, the chunker, the selected model provider,
// the vector backend and the retrieval pipeline. A nil observer disables
// retrieval metrics.
func NewRetrieval(cfg config.Config, storage ports.ObjectStorage, observer ports.RetrievalObserver) (*Retrieval, error) {
	executor := resilience.NewExecutor(ModelResilienceConfig(cfg))
	embedder, generator, err := newModels(cfg, executor)
	if err != nil {
		return nil, err
	}

	indexes, err := newIndexBuilder(cfg, embedder)
	if err != nil {
		return nil, err
	}

	expander := usecase.NewQueryExpander(generator, cfg.QueryVariants)
	pipeline := usecase.NewRetrievalPipeline(expander, RetrievalConfig(cfg), observer)

	var analyzer *usecase.DocumentAnalyzer
	if cfg.DocumentAnalysis {
		analyzer = usecase.NewDocumentAnalyzer(generator)
	}

	return &Retrieval{
		Extractor: newExtractor(storage),
		Chunker:   chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		Indexes:   indexes,
		Pipeline:  pipeline,
		Writer:    usecase.NewDeckContentGenerator(generator),
		Analyzer:  analyzer,
	}, nil
}

func RetrievalConfig(cfg config.Config) usecase.RetrievalConfig {
	return usecase.RetrievalConfig{
		TopK:                cfg.TopK,
		MaxDocsForContext:   cfg.MaxDocsForContext,
		RRFK:                cfg.RRFK,
		FanOutParallelism:   cfg.FanOutParallelism,
		SearchTimeout:       time.Duration(cfg.SearchTimeoutSeconds) * time.Second,
		RetrieveTimeout:     time.Duration(cfg.RetrieveTimeoutSeconds) * time.Second,
		AllowPartial:        cfg.RetrievalAllowPartial,
		FallbackSingleQuery: cfg.RetrievalFallbackQuery,
	}
}

func ModelResilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.RetryMaxAttempts
	out.BreakerEnabled = cfg.BreakerEnabled
	out.RateLimitRPS = cfg.ModelRateLimitRPS
	out.RateLimitBurst = cfg.ModelRateLimitBurst
	return out
}

func brokerResilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.RetryMaxAttempts
	out.BreakerEnabled = cfg.BreakerEnabled
	out.RateLimitRPS = 0
	return out
}

func newModels(cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "openai":
		client := openai.New(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			BaseURL:        cfg.OpenAIBaseURL,
			ChatModel:      cfg.LLMModel,
			EmbeddingModel: cfg.EmbeddingModel,
			BatchSize:      cfg.EmbeddingBatchSize,
		}, executor)
		return openai.NewEmbedder(client), openai.NewGenerator(client), nil
	case "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.LLMModel, cfg.EmbeddingModel, executor)
		return ollama.NewEmbedder(client), ollama.NewGenerator(client), nil
	default:
		return nil, nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func newIndexBuilder(cfg config.Config, embedder ports.Embedder) (ports.IndexBuilder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.VectorBackend)) {
	case "", "memory":
		return memory.NewIndexBuilder(embedder), nil
	case "qdrant":
		return qdrant.NewIndexBuilder(qdrant.New(cfg.QdrantURL), embedder, cfg.QdrantCollectionPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported VECTOR_BACKEND %q", cfg.VectorBackend)
	}
}

func newExtractor(storage ports.ObjectStorage) ports.TextExtractor {
	router := extractor.NewRouter(plaintext.NewExtractor(storage))
	router.Register(".pdf", "application/pdf", pdf.NewExtractor(storage))
	router.Register(".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsx.NewExtractor(storage))
	return router
}

