package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	Oracle      model.OracleConfig
	IntentModel *model.IntentModelConfig
	ReplyModel  *model.ReplyModelConfig
}

// ChatModels holds the classification and reply chat models
type ChatModels struct {
	Intent          einomodel.BaseChatModel
	Reply           einomodel.BaseChatModel
	IntentModelName string
	ReplyModelName  string
}

// NewChatModels creates both chat models for the configured provider
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.IntentModel == nil || config.ReplyModel == nil {
		return nil, fmt.Errorf("model configs are nil")
	}
	switch strings.ToLower(config.Oracle.Provider) {
	case ProviderOpenAI:
		return newOpenAIChatModels(config)
	case ProviderGemini, "":
		return newGeminiChatModels(ctx, config)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Oracle.Provider)
	}
}

func newGeminiChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.Oracle.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  config.Oracle.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.Oracle.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.Oracle.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Classification favours latency, so thinking stays off
	intentModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.IntentModel.Model,
		Temperature: &config.IntentModel.Temperature,
		MaxTokens:   &config.IntentModel.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, fmt.Errorf("error creating intent model: %w", err)
	}

	replyModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.ReplyModel.Model,
		Temperature: &config.ReplyModel.Temperature,
		MaxTokens:   &config.ReplyModel.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(1024)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating reply model")
		return nil, fmt.Errorf("error creating reply model: %w", err)
	}

	return &ChatModels{
		Intent:          intentModel,
		Reply:           replyModel,
		IntentModelName: config.IntentModel.Model,
		ReplyModelName:  config.ReplyModel.Model,
	}, nil
}

func newOpenAIChatModels(config ChatModelConfig) (*ChatModels, error) {
	if config.Oracle.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
	}
	return &ChatModels{
		Intent: NewOpenAIChatModel(OpenAIConfig{
			APIKey:      config.Oracle.OpenAIAPIKey,
			BaseURL:     config.Oracle.OpenAIBaseURL,
			Model:       config.IntentModel.Model,
			Temperature: config.IntentModel.Temperature,
			MaxTokens:   config.IntentModel.MaxTokens,
		}),
		Reply: NewOpenAIChatModel(OpenAIConfig{
			APIKey:      config.Oracle.OpenAIAPIKey,
			BaseURL:     config.Oracle.OpenAIBaseURL,
			Model:       config.ReplyModel.Model,
			Temperature: config.ReplyModel.Temperature,
			MaxTokens:   config.ReplyModel.MaxTokens,
		}),
		IntentModelName: config.IntentModel.Model,
		ReplyModelName:  config.ReplyModel.Model,
	}, nil
}
