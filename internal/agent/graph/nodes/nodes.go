package nodes

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/extract"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/followup"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/intent"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	"github.com/Chative-core-poc-v1/salesagent/internal/telemetry"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// Graph node keys, in execution order.
const (
	NodeClassify = "Classify"
	NodeMerge    = "Merge"
	NodePersist  = "Persist"
	NodeReply    = "Reply"
	NodeFollowUp = "FollowUp"
)

var errMissingInput = errors.New("turn input missing from graph state")

// DefaultHistoryMessages bounds the transcript window shown to the classifier.
const DefaultHistoryMessages = 10

// Dependencies are shared by every node of a compiled graph and are safe for
// concurrent turns.
type Dependencies struct {
	Oracle          model.Oracle
	Sink            model.TelemetrySink
	Patterns        *extract.PatternExtractor
	FollowUps       *followup.Selector
	Timeouts        model.TimeoutConfig
	HistoryMessages int

	rules sync.Map // persona id -> *intent.Classifier
}

// ruleClassifier returns the cached rule classifier for a persona.
func (d *Dependencies) ruleClassifier(p *model.Persona) *intent.Classifier {
	if p == nil || len(p.Intents) == 0 {
		return nil
	}
	if c, ok := d.rules.Load(p.ID); ok {
		return c.(*intent.Classifier)
	}
	c, _ := d.rules.LoadOrStore(p.ID, intent.NewClassifier(p.Intents, 0))
	return c.(*intent.Classifier)
}

// NewInputPreHandler stores the turn input in graph state.
func NewInputPreHandler() func(context.Context, *model.TurnInput, *model.TurnState) (*model.TurnInput, error) {
	return func(ctx context.Context, in *model.TurnInput, s *model.TurnState) (*model.TurnInput, error) {
		s.Input = in
		s.Usage = model.TokenUsage{}
		s.TotalCostUSD = 0
		return in, nil
	}
}

// turnInput reads the stored input back from graph state.
func turnInput(ctx context.Context) (*model.TurnInput, error) {
	var in *model.TurnInput
	err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
		in = s.Input
		return nil
	})
	if err == nil && in == nil {
		err = errMissingInput
	}
	return in, err
}

// recordUsage adds one oracle answer's token usage and cost to the turn and
// reports it. Missing usage is ignored.
func (d *Dependencies) recordUsage(ctx context.Context, purpose model.Purpose, resp *model.OracleResponse) {
	if resp == nil || resp.Usage == nil {
		return
	}
	_, _, cost := model.ComputeCost(resp.Usage, model.ResolvePricing(resp.Model))
	var conversationID, turnID string
	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
		s.Usage.Add(resp.Usage)
		s.TotalCostUSD += cost
		if s.Input != nil {
			conversationID, turnID = s.Input.ConversationID, s.Input.TurnID
		}
		return nil
	})
	telemetry.OracleCostUSD.WithLabelValues(resp.Model).Add(cost)
	logx.Debug().
		Str("conversation_id", conversationID).
		Str("turn_id", turnID).
		Str("purpose", string(purpose)).
		Str("model", resp.Model).
		Int("input_tokens", resp.Usage.InputTokens).
		Int("output_tokens", resp.Usage.OutputTokens).
		Float64("cost_usd", cost).
		Msg("LLM usage")
	d.emit(ctx, telemetry.EventLLMUsage, map[string]any{
		"conversation_id": conversationID,
		"turn_id":         turnID,
		"purpose":         string(purpose),
		"model":           resp.Model,
		"input_tokens":    resp.Usage.InputTokens,
		"output_tokens":   resp.Usage.OutputTokens,
		"cost_usd":        cost,
	})
}

func (d *Dependencies) emit(ctx context.Context, event string, payload map[string]any) {
	if d.Sink != nil {
		d.Sink.Emit(ctx, event, payload)
	}
}

// withTimeout bounds one oracle call; zero means no extra deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
