package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/llm"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/persona"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/repo"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/service"
	"github.com/Chative-core-poc-v1/salesagent/internal/api"
	"github.com/Chative-core-poc-v1/salesagent/internal/core"
	"github.com/Chative-core-poc-v1/salesagent/internal/telemetry"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
	pkgredis "github.com/Chative-core-poc-v1/salesagent/pkg/redis"
)

// AppConfig defines all configurable parameters of the sales agent,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis     pkgredis.Config
	Telemetry telemetry.Config
	HTTP      api.Config

	// LLM provider
	Oracle      model.OracleConfig
	IntentModel model.IntentModelConfig
	ReplyModel  model.ReplyModelConfig

	// Agent configs
	Conversation model.ConversationConfig
	Timeouts     model.TimeoutConfig
	Profile      model.ProfileConfig
	WaitForTurn  bool `envconfig:"CONVERSATION_WAIT_FOR_TURN" default:"false"`
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to process environment config: %v\n", err)
		os.Exit(1)
	}
	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("sales agent stopped")
	}
}

func run(ctx context.Context, cfg AppConfig) error {
	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		return fmt.Errorf("initialise redis client: %w", err)
	}
	defer rdb.Close()
	logx.Info().Msg("connected to redis")

	transcriptTTL, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		return fmt.Errorf("invalid CONVERSATION_TTL %q: %w", cfg.Conversation.TTL, err)
	}
	stateTTL, err := parseTTL(cfg.Conversation.StateTTL)
	if err != nil {
		return fmt.Errorf("invalid CONVERSATION_STATE_TTL %q: %w", cfg.Conversation.StateTTL, err)
	}

	profile, err := persona.Load(cfg.Profile)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	models, err := llm.NewChatModels(ctx, llm.ChatModelConfig{
		Oracle:      cfg.Oracle,
		IntentModel: &cfg.IntentModel,
		ReplyModel:  &cfg.ReplyModel,
	})
	if err != nil {
		return fmt.Errorf("create chat models: %w", err)
	}
	oracle, err := llm.NewChatOracle(models)
	if err != nil {
		return fmt.Errorf("create oracle: %w", err)
	}

	sinks := telemetry.MultiSink{telemetry.LogSink{}}
	if cfg.Telemetry.NATSURL != "" {
		natsSink, err := telemetry.NewNATSSink(cfg.Telemetry)
		if err != nil {
			logx.Warn().Err(err).Msg("telemetry over nats disabled")
		} else {
			defer natsSink.Close()
			sinks = append(sinks, natsSink)
		}
	}

	runner, err := graph.BuildTurnGraph(ctx, graph.Config{
		Oracle:       oracle,
		Sink:         sinks,
		Timeouts:     cfg.Timeouts,
		Conversation: cfg.Conversation,
	})
	if err != nil {
		return fmt.Errorf("build turn graph: %w", err)
	}

	svc, err := service.New(service.Config{
		Runner:      runner,
		Store:       repo.NewRedisWorkflowStateStore(rdb, stateTTL),
		Messages:    conversations.NewMessagesManager(repo.NewRedisConversationRepository(rdb, transcriptTTL), cfg.Conversation),
		Profile:     profile,
		Sink:        sinks,
		WaitForTurn: cfg.WaitForTurn,
	})
	if err != nil {
		return fmt.Errorf("create conversation service: %w", err)
	}

	server := api.NewServer(cfg.HTTP, svc)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logx.Info().Msg("shutting down")
	return server.Shutdown(context.Background())
}

// parseTTL accepts "0" or an empty value as no expiry.
func parseTTL(v string) (time.Duration, error) {
	if v == "" || v == "0" {
		return 0, nil
	}
	return time.ParseDuration(v)
}
