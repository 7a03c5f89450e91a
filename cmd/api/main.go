package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/tripot-app/backend/internal/config"
	"github.com/tripot-app/backend/internal/handler"
	authhandler "github.com/tripot-app/backend/internal/handler/auth"
	familyhandler "github.com/tripot-app/backend/internal/handler/family"
	seniorhandler "github.com/tripot-app/backend/internal/handler/senior"
	"github.com/tripot-app/backend/internal/service/ai"
	"github.com/tripot-app/backend/internal/service/conversation"
	familyservice "github.com/tripot-app/backend/internal/service/family"
	"github.com/tripot-app/backend/internal/service/memory"
	reportservice "github.com/tripot-app/backend/internal/service/report"
	"github.com/tripot-app/backend/internal/service/session"
	"github.com/tripot-app/backend/internal/service/speech"
	"github.com/tripot-app/backend/internal/service/turn"
	"github.com/tripot-app/backend/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Storage.LogDir, "tripot.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}))

	var (
		tracer trace.Tracer
		meter  metric.Meter
	)
	tracer, meter, telemetryCleanup, err := telemetry.Init(ctx, cfg.Storage.LogDir)
	if err != nil {
		log.Printf("warning: telemetry disabled: %v", err)
	} else {
		defer telemetryCleanup()
	}

	convStore, err := conversation.Open(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open conversation store: %v", err)
	}
	defer convStore.Close()

	photoSvc, err := familyservice.NewService(convStore.DB(), cfg.Storage.UploadDir)
	if err != nil {
		log.Fatalf("failed to initialize photo yard: %v", err)
	}

	talkPrompt, err := config.LoadTalkPrompt(cfg.Prompts.TalkPromptPath)
	if err != nil {
		log.Printf("warning: talk prompt unavailable: %v", err)
		log.Println("conversations will receive the default response")
		talkPrompt = nil
	}

	reportPrompt, err := config.LoadReportPrompt(cfg.Prompts.ReportPromptPath)
	if err != nil {
		log.Printf("warning: report prompt unavailable, report generation disabled: %v", err)
		reportPrompt = nil
	}

	// Chat model for replies, distillation, and report analysis.
	var aiSvc *ai.Service
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
		} else if aiSvc, err = ai.NewService(ctx, chatModel); err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			aiSvc = nil
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	// Speech-to-text and embedding adapters.
	var (
		transcriber speech.Transcriber
		embedder    memory.Embedder
	)
	if cfg.OpenAI.Enabled() {
		transcriber = speech.NewWhisperTranscriber(cfg.OpenAI.APIKey, cfg.OpenAI.WhisperModel, cfg.OpenAI.Language)

		openAIEmbedder, err := memory.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel)
		if err != nil {
			log.Printf("warning: failed to initialize embedder: %v", err)
		} else {
			embedder = openAIEmbedder
		}
		log.Println("speech and embedding adapters initialized")
	} else {
		log.Println("OpenAI credentials not configured, running without speech and memory")
	}

	var memStore *memory.Store
	if embedder != nil {
		memStore = memory.NewStore()
	}

	var summarizer memory.Summarizer
	var generator turn.Generator
	if aiSvc != nil {
		summarizer = aiSvc
		generator = aiSvc
	}

	registry := session.NewRegistry()
	compiler := memory.NewCompiler(summarizer, embedder, memStore)
	orchestrator := turn.NewOrchestrator(transcriber, embedder, memStore, generator, convStore, registry, talkPrompt, tracer, meter)

	greeting := config.DefaultGreeting
	if talkPrompt != nil && talkPrompt.StartQuestion != "" {
		greeting = talkPrompt.StartQuestion
	}

	var analyzer reportservice.Analyzer
	if aiSvc != nil {
		analyzer = aiSvc
	}
	reportSvc := reportservice.NewService(convStore, analyzer, reportPrompt)

	router := handler.NewRouter(
		seniorhandler.New(registry, orchestrator, compiler, greeting),
		familyhandler.New(photoSvc, reportSvc, convStore),
		authhandler.New(),
	)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Tripot backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
