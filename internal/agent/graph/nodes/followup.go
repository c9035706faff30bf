package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/followup"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// NewFollowUpNode picks the follow-up, records a goal attempt when it asks a
// goal question and assembles the turn result.
func NewFollowUpNode(d *Dependencies) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, reply string) (*model.TurnResult, error) {
		var s model.TurnState
		err := compose.ProcessState(ctx, func(_ context.Context, st *model.TurnState) error {
			if st.Input == nil || st.Merged == nil || st.Updated == nil {
				return fmt.Errorf("missing merged turn in state")
			}
			s = *st
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		in := s.Input
		updated := s.Updated

		outcome := d.FollowUps.Select(ctx, followup.Input{
			ConversationID: in.ConversationID,
			PrimaryIntent:  s.Merged.PrimaryIntent,
			TurnData:       s.Merged.TurnData,
			Data:           s.Merged.Data,
			Previous:       in.State,
			State:          updated,
			Profile:        in.Profile,
			Reply:          reply,
			History:        in.History,
		})
		for _, call := range outcome.Calls {
			d.recordUsage(ctx, call.Purpose, call.Response)
		}

		fu := outcome.FollowUp
		if fu.GoalID != "" {
			updated, err = in.Updater.Update(ctx, in.ConversationID, &model.StatePatch{
				GoalAttempts: map[string]int{fu.GoalID: 1},
			})
			if err != nil {
				return nil, stateStoreError(err)
			}
		}

		log := logx.Turn(in.ConversationID, in.TurnID)
		log.Debug().
			Str("phase", NodeFollowUp).
			Str("kind", string(fu.Kind)).
			Str("goal_id", fu.GoalID).
			Bool("degraded", fu.Degraded).
			Msg("follow-up selected")

		result := &model.TurnResult{
			ConversationID: in.ConversationID,
			TurnID:         in.TurnID,
			Reply:          reply,
			FollowUp:       fu,
			PrimaryIntent:  s.Merged.PrimaryIntent,
			Extracted:      s.Merged.TurnData,
			State:          updated,
			Events:         s.Events,
		}
		if s.Classification != nil {
			result.Classification = s.Classification.Intent
		}
		err = compose.ProcessState(ctx, func(_ context.Context, st *model.TurnState) error {
			result.Usage = st.Usage
			result.CostUSD = st.TotalCostUSD
			return nil
		})
		return result, err
	})
}
