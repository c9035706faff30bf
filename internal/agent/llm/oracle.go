package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	"github.com/Chative-core-poc-v1/salesagent/internal/telemetry"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

var (
	// ErrNoJSONObject is returned when a structured answer contains no JSON object.
	ErrNoJSONObject = errors.New("response contains no json object")
	// ErrSchemaMismatch is returned when a structured answer fails schema validation.
	ErrSchemaMismatch = errors.New("response does not match schema")
)

// ChatOracle serves oracle requests from eino chat models. Structured requests
// go to the intent model, free-text requests to the reply model.
type ChatOracle struct {
	models *ChatModels
}

func NewChatOracle(models *ChatModels) (*ChatOracle, error) {
	if models == nil || models.Intent == nil || models.Reply == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	return &ChatOracle{models: models}, nil
}

func (o *ChatOracle) pick(req model.OracleRequest) (einomodel.BaseChatModel, string) {
	if req.Schema != nil || req.Purpose == model.PurposeClassify {
		return o.models.Intent, o.models.IntentModelName
	}
	return o.models.Reply, o.models.ReplyModelName
}

func (o *ChatOracle) Complete(ctx context.Context, req model.OracleRequest) (*model.OracleResponse, error) {
	cm, name := o.pick(req)
	purpose := string(req.Purpose)

	start := time.Now()
	out, err := cm.Generate(ctx, buildMessages(req))
	telemetry.OracleDuration.WithLabelValues(purpose).Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.OracleCalls.WithLabelValues(purpose, name, "error").Inc()
		return nil, fmt.Errorf("%s completion: %w", purpose, err)
	}
	if out == nil {
		telemetry.OracleCalls.WithLabelValues(purpose, name, "error").Inc()
		return nil, fmt.Errorf("%s completion: nil message", purpose)
	}

	resp := &model.OracleResponse{Text: strings.TrimSpace(out.Content), Model: name}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		resp.Usage = &model.TokenUsage{
			InputTokens:  out.ResponseMeta.Usage.PromptTokens,
			OutputTokens: out.ResponseMeta.Usage.CompletionTokens,
		}
		telemetry.OracleTokens.WithLabelValues(purpose, name, "input").Add(float64(resp.Usage.InputTokens))
		telemetry.OracleTokens.WithLabelValues(purpose, name, "output").Add(float64(resp.Usage.OutputTokens))
	}

	if req.Schema != nil {
		structured, err := ParseStructured(resp.Text, req.Schema)
		if err != nil {
			telemetry.OracleCalls.WithLabelValues(purpose, name, "invalid").Inc()
			logx.Warn().Err(err).Str("purpose", purpose).Str("model", name).Msg("structured completion rejected")
			return nil, err
		}
		resp.Structured = structured
	}
	telemetry.OracleCalls.WithLabelValues(purpose, name, "ok").Inc()
	return resp, nil
}

func buildMessages(req model.OracleRequest) []*schema.Message {
	system := req.System
	if req.Schema != nil {
		b, _ := json.Marshal(req.Schema)
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON object that validates against this JSON Schema. Do not add prose or code fences.\n" + string(b))
	}
	msgs := make([]*schema.Message, 0, len(req.History)+2)
	if system != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	for _, m := range req.History {
		if m != nil && strings.TrimSpace(m.Content) != "" {
			msgs = append(msgs, m)
		}
	}
	return append(msgs, schema.UserMessage(req.Prompt))
}

// ParseStructured extracts the JSON object from text and validates it against jsonSchema.
func ParseStructured(text string, jsonSchema map[string]any) (map[string]any, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return nil, ErrNoJSONObject
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode structured response: %w", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(jsonSchema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, errs)
	}
	return data, nil
}

// extractJSONObject strips code fences and returns the outermost {...} span.
func extractJSONObject(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

var _ model.Oracle = (*ChatOracle)(nil)
