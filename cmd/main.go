package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/leviathanch/Google-Companion/adapters/device"
	"github.com/leviathanch/Google-Companion/adapters/livews"
	"github.com/leviathanch/Google-Companion/adapters/llm"
	"github.com/leviathanch/Google-Companion/adapters/localtools"
	mongoadapter "github.com/leviathanch/Google-Companion/adapters/mongo"
	"github.com/leviathanch/Google-Companion/adapters/stt"
	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/domain/repositories"
	"github.com/leviathanch/Google-Companion/internal/api"
	"github.com/leviathanch/Google-Companion/internal/auth"
	"github.com/leviathanch/Google-Companion/internal/config"
	"github.com/leviathanch/Google-Companion/internal/monitor"
	"github.com/leviathanch/Google-Companion/internal/telemetry"
	"github.com/leviathanch/Google-Companion/usecase"
)

func main() {
	// .env is optional, real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Failed to load configuration", zap.Error(err))
	}

	ring := telemetry.NewLogRing(512)
	logger, err := telemetry.NewLogger(cfg.LogDir, ring)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx := context.Background()
	_, metrics, telemetryCleanup, err := telemetry.Init(ctx, cfg.LogDir)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryCleanup()

	// Audio devices
	source := device.NewMicSource(logger)
	sink, err := device.NewSpeakerSink(logger)
	if err != nil {
		logger.Fatal("Failed to open audio output", zap.Error(err))
	}
	defer sink.Close()

	// Optional search capability
	var search func(ctx context.Context, query string) (string, error)
	if cfg.GeminiAPIKey != "" {
		searcher, err := llm.NewGeminiSearcher(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			logger.Warn("Search capability unavailable", zap.Error(err))
		} else {
			search = searcher.Search
		}
	}

	// Local tool surfaces
	hub := monitor.NewHub(logger)
	go hub.Run()

	workspace, err := localtools.NewWorkspace(cfg.WorkspaceDir, logger)
	if err != nil {
		logger.Fatal("Failed to create workspace", zap.Error(err))
	}
	desktop := localtools.NewDesktop(logger, func(name string) {
		hub.Broadcast(monitor.Event{Type: "expression", Data: name})
	})

	// Optional transcript persistence
	var transcriptSink repositories.TranscriptSink
	var history api.TranscriptHistory
	if cfg.MongoEnabled {
		mongoClient, err := mongoadapter.NewClient(cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			logger.Warn("Transcript persistence unavailable", zap.Error(err))
		} else {
			defer mongoClient.Close(ctx)
			repo := mongoadapter.NewTranscriptRepository(mongoClient.Database)
			transcriptSink = repo
			history = repo
		}
	}

	// Optional local speech-to-text
	var transcriber repositories.Transcriber
	if cfg.STTEnabled {
		transcriber = stt.NewGoogleTranscriber(cfg.STTLanguage, logger)
	}

	svc := usecase.NewCompanionService(usecase.Deps{
		Clock: clock.New(),
		NewTransport: func() repositories.AgentTransport {
			return livews.New(cfg.AgentURL, cfg.AgentToken, logger)
		},
		Source:         source,
		Sink:           sink,
		Capabilities:   workspace.Capabilities(search),
		SideEffects:    workspace.SideEffects(desktop),
		TranscriptSink: transcriptSink,
		Transcriber:    transcriber,
		Setup: entities.SessionSetup{
			Persona:          cfg.Persona,
			Voice:            cfg.Voice,
			ResponseModality: cfg.ResponseModality,
		},
		Hub:     hub,
		Ring:    ring,
		Metrics: metrics,
		Logger:  logger,
	})
	defer svc.Shutdown()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	issuer := auth.NewIssuer(cfg.JWTSecret)
	api.InitRoutes(e, svc, history, hub, issuer, api.Credentials{
		Username: cfg.MonitorUsername,
		Password: cfg.MonitorPassword,
	}, logger)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()
	logger.Info("Companion started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
