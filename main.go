package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/unicornlens/server/internal/agent"
	"github.com/unicornlens/server/internal/agent/model"
	"github.com/unicornlens/server/internal/agent/repo"
	"github.com/unicornlens/server/internal/agent/tools"
	"github.com/unicornlens/server/internal/api"
	"github.com/unicornlens/server/internal/core"
	"github.com/unicornlens/server/internal/query"
	logx "github.com/unicornlens/server/pkg/logger"
	pkgpostgres "github.com/unicornlens/server/pkg/postgres"
	pkgredis "github.com/unicornlens/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the server, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	Port        int    `envconfig:"PORT" default:"8080"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Answer       model.AnswerModelConfig
	Synthesis    model.SynthesisModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Query        model.QueryConfig
}

func main() {
	ctx := context.Background()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	rdb, err := envCfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
	}
	defer rdb.Close()

	pool, err := envCfg.Postgres.New(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise Postgres pool")
	}
	defer pool.Close()

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		logx.Fatal().Str("ttl", envCfg.Conversation.TTL).Err(err).Msg("Invalid CONVERSATION_TTL")
	}

	// ====================================================
	// Models and tools
	chatModels, err := agent.NewChatModels(ctx, agent.ChatModelConfig{
		APIKey:          envCfg.APIKey,
		BaseURL:         envCfg.BaseURL,
		AnswerConfig:    &envCfg.Answer,
		SynthesisConfig: &envCfg.Synthesis,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create chat models")
	}

	registry, err := tools.NewRegistry(ctx, tools.GetQueryTools())
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build tool registry")
	}
	if err := chatModels.BindToolsToAnswerModel(ctx, registry.Infos()); err != nil {
		logx.Fatal().Err(err).Msg("Failed to bind tools")
	}

	// ====================================================
	// Service wiring
	service := agent.NewService(
		chatModels.Answer,
		chatModels.Synthesis,
		registry,
		repo.NewRedisConversationRepository(rdb, ttl),
		query.NewGateway(pool, envCfg.Query),
		agent.ServiceConfig{
			Prompt:       envCfg.Prompt,
			Conversation: envCfg.Conversation,
		},
	)

	router := api.NewRouter(api.NewHandlers(service))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", envCfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logx.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logx.Info().
		Int("port", envCfg.Port).
		Str("answer_model", chatModels.AnswerModelName).
		Str("synthesis_model", chatModels.SynthesisModelName).
		Msg("Server listening")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logx.Fatal().Err(err).Msg("Server failed")
	}
}
