package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/mnemo/internal/api"
	"github.com/nidhogg/mnemo/internal/config"
	"github.com/nidhogg/mnemo/internal/embedding"
	"github.com/nidhogg/mnemo/internal/extraction"
	"github.com/nidhogg/mnemo/internal/graphquery"
	"github.com/nidhogg/mnemo/internal/oracle"
	"github.com/nidhogg/mnemo/internal/provider"
	"github.com/nidhogg/mnemo/internal/recall"
	"github.com/nidhogg/mnemo/internal/relation"
	"github.com/nidhogg/mnemo/internal/store"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting mnemo...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/mnemo.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize provider router
	router := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		provCfg := provider.Config{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey, Model: pc.Model,
		}
		switch pc.Type {
		case "openai":
			router.Register(provider.NewOpenAIProvider(provCfg, logger))
		case "anthropic":
			router.Register(provider.NewAnthropicProvider(provCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}

	oracleAdapter := oracle.NewAdapter(router, logger)

	// Initialize PostgreSQL store
	var pgStore *store.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := store.New(context.Background(), cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(context.Background()); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			pgStore = ps
		}
	}

	// Initialize relation graph store
	relStore, relErr := relation.NewStore(cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
	if relErr != nil {
		logger.Warn("Neo4j unavailable, running without relation graph", zap.Error(relErr))
		relStore = nil
	} else if mErr := relStore.Migrate(context.Background()); mErr != nil {
		logger.Warn("Neo4j unavailable, running without relation graph", zap.Error(mErr))
		relStore.Close(context.Background())
		relStore = nil
	}

	// Initialize recall replication
	embedder := embedding.New(embedding.Config{
		Provider:  cfg.Embedding.Provider,
		Endpoint:  cfg.Embedding.Endpoint,
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey,
		Dimension: cfg.Embedding.Dimension,
	})

	var fast, durable recall.VectorStore
	if cfg.Recall.FastEnabled {
		cs, csErr := recall.NewChromemStore()
		if csErr != nil {
			logger.Warn("fast recall store unavailable", zap.Error(csErr))
		} else {
			fast = cs
		}
	}
	var qdrantStore *recall.QdrantStore
	if cfg.Recall.DurableEnabled {
		qs, qErr := recall.NewQdrantStore(cfg.Database.Qdrant.Host, cfg.Database.Qdrant.Port, cfg.Recall.DurableCollection)
		if qErr != nil {
			logger.Warn("Qdrant unavailable, running without durable recall", zap.Error(qErr))
		} else if eErr := qs.EnsureCollection(context.Background(), uint64(embedder.Dimension())); eErr != nil {
			logger.Warn("Qdrant collection setup failed, running without durable recall", zap.Error(eErr))
			qs.Close()
		} else {
			qdrantStore = qs
			durable = qs
		}
	}
	replicator := recall.NewReplicator(fast, durable, embedder, logger)

	// Run lock keeps concurrent job runners from interleaving a run
	var locker extraction.Locker
	var runLock *extraction.RunLock
	if cfg.Database.Redis.URL != "" {
		rl, rlErr := extraction.NewRunLock(cfg.Database.Redis.URL, "mnemo:extraction:run", 10*time.Minute, logger)
		if rlErr != nil {
			logger.Warn("Redis unavailable, running without run lock", zap.Error(rlErr))
		} else {
			runLock = rl
			locker = rl
		}
	}

	// Batch extraction job
	var jobRunner api.JobRunner
	var ingester api.LogIngester
	if pgStore != nil {
		job := extraction.NewJob(pgStore, oracleAdapter, replicator, locker, extraction.JobConfig{
			SourceTag: cfg.Extraction.SourceTag,
			AgentID:   cfg.Extraction.AgentID,
			BatchSize: cfg.Extraction.BatchSize,
		}, logger)
		jobRunner = job
		ingester = pgStore

		if cfg.Extraction.IntervalMinutes > 0 {
			interval := time.Duration(cfg.Extraction.IntervalMinutes) * time.Minute
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for range ticker.C {
					if _, runErr := job.Run(context.Background()); runErr != nil {
						logger.Error("scheduled extraction run failed", zap.Error(runErr))
					}
				}
			}()
			logger.Info("Extraction scheduled", zap.Duration("interval", interval))
		}
	}

	// Live relation extraction and graph queries need Neo4j
	var liveExtractor *extraction.LiveExtractor
	var notifier api.ExchangeNotifier
	var graphSvc api.GraphService
	if relStore != nil {
		liveExtractor = extraction.NewLiveExtractor(oracleAdapter, relStore, cfg.Extraction.MinExchangeChars, logger)
		notifier = liveExtractor
		graphSvc = graphquery.NewService(relStore, logger)
	}

	handler := api.NewHandler(graphSvc, jobRunner, ingester, notifier, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("mnemo listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down mnemo...")
	ctx := context.Background()
	srv.Shutdown(ctx)
	if liveExtractor != nil {
		liveExtractor.Close()
	}
	if relStore != nil {
		relStore.Close(ctx)
	}
	if qdrantStore != nil {
		qdrantStore.Close()
	}
	if runLock != nil {
		runLock.Close()
	}
	if pgStore != nil {
		pgStore.Close()
	}
}
