package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/kmarsh82/dental-ai-service/internal/api/router"
	"github.com/kmarsh82/dental-ai-service/internal/chat"
	"github.com/kmarsh82/dental-ai-service/internal/clinic"
	appconfig "github.com/kmarsh82/dental-ai-service/internal/config"
	"github.com/kmarsh82/dental-ai-service/internal/observability/metrics"
	"github.com/kmarsh82/dental-ai-service/internal/webchat"
	"github.com/kmarsh82/dental-ai-service/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dental-ai-service API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"use_llm", cfg.UseLLM,
	)

	hours := clinic.Default()

	// Session state: Redis when configured, otherwise in-process.
	var store chat.SessionStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		cancel()
		store = chat.NewRedisSessionStore(client, cfg.SessionTTL)
		logger.Info("session store: redis", "addr", cfg.RedisAddr)
	} else {
		store = chat.NewMemorySessionStore(cfg.SessionTTL)
		logger.Info("session store: in-memory")
	}

	var llm *chat.LLMService
	if cfg.UseLLM {
		if !cfg.LLMAvailable() {
			logger.Warn("USE_LLM is set but OPENAI_API_KEY is missing, falling back to naive parsing")
		} else {
			var err error
			llm, err = chat.NewLLMService(cfg.OpenAIAPIKey, chat.LLMOptions{
				Model:       cfg.OpenAIModel,
				BaseURL:     cfg.OpenAIBaseURL,
				Temperature: cfg.LLMTemperature,
				MaxTokens:   cfg.LLMMaxTokens,
				Timeout:     cfg.LLMTimeout,
			}, hours, logger)
			if err != nil {
				logger.Error("failed to initialize llm", "error", err)
				os.Exit(1)
			}
			logger.Info("llm enabled", "model", cfg.OpenAIModel)
		}
	}

	chatMetrics := metrics.NewChatMetrics(prometheus.DefaultRegisterer)
	engine := chat.NewEngine(store, llm, hours, logger, chatMetrics)

	chatHandler := chat.NewHandler(engine, logger, chat.HealthInfo{
		Service:      cfg.ServiceName,
		Version:      cfg.Version,
		UseLLM:       cfg.UseLLM,
		LLMAvailable: cfg.LLMAvailable(),
		Model:        cfg.OpenAIModel,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		WebchatHandler:     webchat.NewHandler(engine, logger),
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
