package nodes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/goals"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/salesagent/internal/core/error"
	"github.com/Chative-core-poc-v1/salesagent/internal/telemetry"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// NewPersistNode computes goal progression and applies it through the
// state updater. It runs even when nothing was extracted.
func NewPersistNode(d *Dependencies) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, m *model.MergedTurn) (*model.ChannelWorkflowState, error) {
		in, err := turnInput(ctx)
		if err != nil {
			return nil, err
		}
		patch := goals.Advance(goals.Turn{
			Catalog:       in.Profile.Catalog,
			State:         in.State,
			TurnData:      m.TurnData,
			PrimaryIntent: m.PrimaryIntent,
		})
		updated, err := in.Updater.Update(ctx, in.ConversationID, patch)
		if err != nil {
			return nil, stateStoreError(err)
		}

		log := logx.Turn(in.ConversationID, in.TurnID)
		log.Debug().
			Str("phase", NodePersist).
			Strs("active_goals", updated.ActiveGoals).
			Strs("completed_goals", updated.CompletedGoals).
			Strs("events", patch.EmitEvents).
			Msg("state updated")

		for _, e := range patch.EmitEvents {
			payload := map[string]any{
				"conversation_id": in.ConversationID,
				"turn_id":         in.TurnID,
				"event":           e,
			}
			if id, ok := strings.CutPrefix(e, goals.EventGoalCompletedPrefix); ok {
				payload["goal_id"] = id
			}
			d.emit(ctx, telemetry.EventGoal, payload)
		}

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.Events = append(s.Events, patch.EmitEvents...)
			return nil
		})
		return updated, err
	})
}

// NewPersistPostHandler stores the updated state in graph state.
func NewPersistPostHandler() func(context.Context, *model.ChannelWorkflowState, *model.TurnState) (*model.ChannelWorkflowState, error) {
	return func(ctx context.Context, out *model.ChannelWorkflowState, s *model.TurnState) (*model.ChannelWorkflowState, error) {
		s.Updated = out
		return out, nil
	}
}

// stateStoreError keeps an existing AppError and tags everything else as a
// state store failure.
func stateStoreError(err error) error {
	var ae *errx.AppError
	if errors.As(err, &ae) {
		return err
	}
	return errx.New(fmt.Errorf("%w: %w", errx.ErrStateStore, err), http.StatusBadGateway, errx.StateStoreErrorMessage).
		WithKind(errx.KindStateStore)
}
