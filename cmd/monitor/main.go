package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/climate-resilience-monitor/internal/adapter/gemini"
	httpadapter "github.com/couchcryptid/climate-resilience-monitor/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-resilience-monitor/internal/adapter/kafka"
	"github.com/couchcryptid/climate-resilience-monitor/internal/adapter/openweather"
	"github.com/couchcryptid/climate-resilience-monitor/internal/config"
	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/couchcryptid/climate-resilience-monitor/internal/observability"
	"github.com/couchcryptid/climate-resilience-monitor/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clk := clockwork.NewRealClock()

	weather := openweather.NewClient(cfg.WeatherAPIKey, cfg.WeatherCountry, cfg.WeatherTimeout,
		openweather.RetryPolicy{
			MaxRetries:     cfg.WeatherMaxRetries,
			RateLimitDelay: cfg.WeatherRateLimitDelay,
			RetryDelay:     cfg.WeatherRetryDelay,
		},
		metrics, logger,
		openweather.WithBaseURL(cfg.WeatherBaseURL),
		openweather.WithClock(clk),
	)

	// Predictor and speech are feature-flagged via GEMINI_API_KEY.
	var predictor domain.Predictor
	if cfg.PredictorEnabled {
		predictor = gemini.NewPredictor(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout, logger,
			gemini.WithBaseURL(cfg.GeminiBaseURL))
		logger.Info("risk prediction enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("risk prediction disabled")
	}

	var speaker pipeline.Speaker = gemini.NewLogSpeaker(logger)
	if cfg.SpeechEnabled {
		speaker = gemini.NewSpeaker(cfg.GeminiAPIKey, cfg.SpeechModel, cfg.SpeechVoice, cfg.BriefingTimeout, logger,
			gemini.WithBaseURL(cfg.GeminiBaseURL))
		logger.Info("voice briefings enabled", "model", cfg.SpeechModel, "voice", cfg.SpeechVoice)
	}
	briefer := pipeline.NewVoiceBriefer(speaker, cfg.BriefingTimeout, metrics, logger)

	var (
		publisher pipeline.AlertPublisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("alert fan-out enabled", "topic", cfg.KafkaAlertTopic, "brokers", cfg.KafkaBrokers)
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	engine := pipeline.NewAlertEngine(briefer, publisher, rng, metrics, logger)
	session, err := pipeline.NewSession(cfg.DefaultCityID, engine)
	if err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}
	logger.Info("session started", "session_id", session.ID, "city", session.City().Name)

	refresh := pipeline.New(session, predictor, metrics, logger)
	fleet := pipeline.NewFleetSync(weather, domain.Cities(), cfg.SyncPacing, cfg.SyncInterval, clk, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, session, refresh, briefer, fleet, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return refresh.Run(gctx)
	})
	g.Go(func() error {
		return fleet.Run(gctx, func(readings map[string]domain.WeatherSnapshot) {
			session.SetWeather(readings)
			refresh.Trigger()
		})
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

	briefer.Wait()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
