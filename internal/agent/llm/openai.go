package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIChatModel adapts the OpenAI chat completions API to eino's BaseChatModel.
type OpenAIChatModel struct {
	client openai.Client
	cfg    OpenAIConfig
}

func NewOpenAIChatModel(cfg OpenAIConfig) *OpenAIChatModel {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIChatModel{client: openai.NewClient(opts...), cfg: cfg}
}

func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (out *schema.Message, err error) {
	o := einomodel.GetCommonOptions(&einomodel.Options{
		Model:       &m.cfg.Model,
		Temperature: &m.cfg.Temperature,
		MaxTokens:   &m.cfg.MaxTokens,
	}, opts...)

	conf := &einomodel.Config{Model: *o.Model}
	if o.Temperature != nil {
		conf.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		conf.MaxTokens = *o.MaxTokens
	}
	ctx = callbacks.OnStart(ctx, &einomodel.CallbackInput{Messages: input, Config: conf})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(conf.Model),
		Messages: toOpenAIMessages(input),
	}
	if o.Temperature != nil {
		params.Temperature = openai.Float(float64(*o.Temperature))
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(*o.MaxTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: no choices")
	}

	usage := &schema.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	out = schema.AssistantMessage(resp.Choices[0].Message.Content, nil)
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage:        usage,
	}
	callbacks.OnEnd(ctx, &einomodel.CallbackOutput{
		Message: out,
		Config:  conf,
		TokenUsage: &einomodel.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	})
	return out, nil
}

// Stream delivers the full completion as a single chunk.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *OpenAIChatModel) GetType() string { return "OpenAI" }

func (m *OpenAIChatModel) IsCallbacksEnabled() bool { return true }

func toOpenAIMessages(in []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(in))
	for _, msg := range in {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openai.SystemMessage(msg.Content))
		case schema.Assistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

var _ einomodel.BaseChatModel = (*OpenAIChatModel)(nil)
