package nodes

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/compose"
	"golang.org/x/sync/errgroup"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/goals"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	"github.com/Chative-core-poc-v1/salesagent/internal/telemetry"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// NewClassifyNode runs the pattern extractor, the rule classifier and the
// oracle classification concurrently. None of them can fail the turn.
func NewClassifyNode(d *Dependencies) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in *model.TurnInput) (*model.TurnClassification, error) {
		state := in.State
		catalog := in.Profile.Catalog
		out := &model.TurnClassification{}
		if c, ok := goals.MostUrgent(state.ActiveGoals, catalog); ok {
			out.HintGoal = c.ID
			out.Hints = goals.StillNeeded(c.Goal, state.CapturedData)
		}

		var g errgroup.Group
		g.Go(func() error {
			out.Patterns = d.Patterns.Extract(in.Message, out.Hints)
			return nil
		})
		g.Go(func() error {
			out.Rule = d.ruleClassifier(in.Profile.Persona).Classify(in.Message)
			return nil
		})
		g.Go(func() error {
			out.Intent = d.classify(ctx, in)
			return nil
		})
		_ = g.Wait()

		log := logx.Turn(in.ConversationID, in.TurnID)
		log.Debug().
			Str("phase", NodeClassify).
			Str("primary_intent", out.Intent.PrimaryIntent).
			Bool("fallback", out.Intent.Fallback).
			Int("llm_extractions", len(out.Intent.Extractions)).
			Int("pattern_extractions", len(out.Patterns)).
			Strs("hints", out.Hints).
			Msg("classified")
		return out, nil
	})
}

// NewClassifyPostHandler stores the classification in graph state.
func NewClassifyPostHandler() func(context.Context, *model.TurnClassification, *model.TurnState) (*model.TurnClassification, error) {
	return func(ctx context.Context, out *model.TurnClassification, s *model.TurnState) (*model.TurnClassification, error) {
		s.Classification = out
		return out, nil
	}
}

// classify asks the oracle for a structured IntentDetectionResult and
// degrades to the safe default on any failure.
func (d *Dependencies) classify(ctx context.Context, in *model.TurnInput) *model.IntentDetectionResult {
	result, err := d.classifyWithOracle(ctx, in)
	if err == nil {
		return result
	}
	log := logx.Turn(in.ConversationID, in.TurnID)
	log.Warn().Err(err).Str("phase", NodeClassify).Msg("classification degraded to default")
	telemetry.ClassificationFallbacks.Inc()
	d.emit(ctx, telemetry.EventClassificationFallback, map[string]any{
		"conversation_id": in.ConversationID,
		"turn_id":         in.TurnID,
		"error":           err.Error(),
	})
	return model.DefaultIntentResult()
}

func (d *Dependencies) classifyWithOracle(ctx context.Context, in *model.TurnInput) (*model.IntentDetectionResult, error) {
	if d.Oracle == nil {
		return nil, fmt.Errorf("no oracle configured")
	}
	system, err := prompts.RenderIntentSystem(ctx, intentContext(in))
	if err != nil {
		return nil, err
	}
	maxMessages := d.HistoryMessages
	if maxMessages <= 0 {
		maxMessages = DefaultHistoryMessages
	}

	callCtx, cancel := withTimeout(ctx, d.Timeouts.Classify)
	defer cancel()
	resp, err := d.Oracle.Complete(callCtx, model.OracleRequest{
		Purpose: model.PurposeClassify,
		System:  system,
		Prompt:  conversations.BuildClassificationContext(in.History, in.Message, maxMessages),
		Schema:  parsers.IntentSchema(),
	})
	if err != nil {
		return nil, err
	}
	d.recordUsage(ctx, model.PurposeClassify, resp)
	if resp.Structured == nil {
		return nil, fmt.Errorf("classification returned no structured result")
	}
	return parsers.ParseIntentResult(resp.Structured)
}

func intentContext(in *model.TurnInput) prompts.IntentContext {
	state := in.State
	ic := prompts.IntentContext{
		Company:        in.Profile.Company,
		CompletedGoals: state.CompletedGoals,
	}
	for _, c := range goals.Rank(state.ActiveGoals, in.Profile.Catalog) {
		ic.ActiveGoals = append(ic.ActiveGoals, prompts.ActiveGoal{
			ID:     c.ID,
			Name:   c.Goal.Name,
			Needed: goals.StillNeeded(c.Goal, state.CapturedData),
		})
	}
	for k, v := range state.CapturedData {
		if model.HasRealValue(v) {
			ic.CapturedFields = append(ic.CapturedFields, k)
		}
	}
	sort.Strings(ic.CapturedFields)
	return ic
}
