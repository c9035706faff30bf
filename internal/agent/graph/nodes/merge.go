package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/extract"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/goals"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// NewMergeNode folds this turn's extractions into one per-field map.
func NewMergeNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, c *model.TurnClassification) (*model.MergedTurn, error) {
		in, err := turnInput(ctx)
		if err != nil {
			return nil, err
		}
		merged := Merge(in.Message, in.State.CapturedData, c)
		log := logx.Turn(in.ConversationID, in.TurnID)
		log.Debug().
			Str("phase", NodeMerge).
			Str("primary_intent", merged.PrimaryIntent).
			Int("fields", len(merged.TurnData)).
			Msg("merged")
		return merged, nil
	})
}

// NewMergePostHandler stores the merged turn in graph state.
func NewMergePostHandler() func(context.Context, *model.MergedTurn, *model.TurnState) (*model.MergedTurn, error) {
	return func(ctx context.Context, out *model.MergedTurn, s *model.TurnState) (*model.MergedTurn, error) {
		s.Merged = out
		return out, nil
	}
}

// Merge applies the extraction precedence rules:
//   - oracle extractions are the base;
//   - pattern values for correction fields replace oracle values;
//   - motivation keywords are skipped when a reason is already known;
//   - other pattern values only fill gaps;
//   - invalid emails and phones are dropped;
//   - a confirmation message drops wrong-contact signals.
//
// When classification fell back to the default, a matched rule intent becomes
// the primary intent.
func Merge(message string, persisted map[string]any, c *model.TurnClassification) *model.MergedTurn {
	if c == nil {
		c = &model.TurnClassification{}
	}
	result := c.Intent
	if result == nil {
		result = model.DefaultIntentResult()
	}

	var records []model.ExtractionRecord
	index := map[string]int{}
	put := func(r model.ExtractionRecord, replace bool) {
		if i, ok := index[r.Field]; ok {
			if replace {
				records[i] = r
			}
			return
		}
		index[r.Field] = len(records)
		records = append(records, r)
	}

	for _, r := range result.Extractions {
		if r.Field == "" || !model.HasRealValue(r.Value) {
			continue
		}
		put(r, true)
	}

	_, llmReason := index[model.FieldMotivationReason]
	reasonKnown := llmReason || model.HasRealValue(persisted[model.FieldMotivationReason])
	for _, r := range c.Patterns {
		switch {
		case extract.IsMotivationField(r.Field):
			if !reasonKnown {
				put(r, false)
			}
		case extract.IsCorrectionField(r.Field):
			put(r, true)
		default:
			put(r, false)
		}
	}

	valid := records[:0]
	for _, r := range records {
		if (r.Field == model.FieldEmail || r.Field == model.FieldPhone) && !extract.Valid(r.Field, "", r.Value) {
			continue
		}
		valid = append(valid, r)
	}
	records = extract.FilterConfirmation(message, valid)

	turnData := make(map[string]any, len(records))
	for _, r := range records {
		turnData[r.Field] = r.Wrap()
	}

	primary := result.PrimaryIntent
	if result.Fallback && c.Rule != nil && c.Rule.Intent != "" {
		primary = c.Rule.Intent
	}

	return &model.MergedTurn{
		Records:       records,
		TurnData:      turnData,
		Data:          goals.Overlay(persisted, turnData),
		PrimaryIntent: primary,
	}
}
