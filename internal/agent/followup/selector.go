package followup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/extract"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/goals"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/salesagent/internal/core/error"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// Input is everything the selector reads. State is the post-Persist state;
// Previous is the state as loaded at turn start.
type Input struct {
	ConversationID string
	PrimaryIntent  string
	TurnData       map[string]any
	Data           map[string]any
	Previous       *model.ChannelWorkflowState
	State          *model.ChannelWorkflowState
	Profile        *model.Profile
	Reply          string
	History        []*schema.Message
}

// Outcome is the chosen follow-up plus the oracle calls spent producing it.
type Outcome struct {
	FollowUp model.FollowUp
	Calls    []Call
}

// Call is one follow-up oracle answer and the purpose it was issued for.
type Call struct {
	Purpose  model.Purpose
	Response *model.OracleResponse
}

// Selector runs the follow-up decision cascade after the reply.
type Selector struct {
	oracle  model.Oracle
	timeout time.Duration
}

func NewSelector(oracle model.Oracle, timeout time.Duration) *Selector {
	return &Selector{oracle: oracle, timeout: timeout}
}

// Select evaluates the rules in priority order and stops at the first match.
// Oracle failures degrade to no follow-up.
func (s *Selector) Select(ctx context.Context, in Input) *Outcome {
	in.normalize()
	out := &Outcome{FollowUp: model.FollowUp{Kind: model.FollowUpNone}}
	catalog := in.Profile.Catalog

	// 1. Exit only once no goal is left active.
	if in.PrimaryIntent == model.IntentEndConversation && len(in.State.ActiveGoals) == 0 {
		s.generate(ctx, in, out, model.FollowUpExit, model.PurposeExit, exitInstruction(in))
		return out
	}

	// 2. Wrong contact info reported this turn.
	for _, f := range []struct{ wrong, field string }{
		{model.FieldWrongPhone, model.FieldPhone},
		{model.FieldWrongEmail, model.FieldEmail},
	} {
		if wrong := model.Lookup(in.TurnData, f.wrong); wrong != "" {
			if s.generate(ctx, in, out, model.FollowUpErrorRecovery, model.PurposeRecovery,
				recoveryInstruction(f.field, wrong, model.Lookup(in.Previous.CapturedData, f.field))) {
				out.FollowUp.Fields = []string{f.field}
			}
			return out
		}
	}

	// 3. A validated email or phone arrived this turn.
	if field, value, ok := extract.ValidatedContact(in.TurnData); ok {
		if !s.generate(ctx, in, out, model.FollowUpVerification, model.PurposeVerification, verificationInstruction(field, value)) {
			return out
		}
		out.FollowUp.Fields = []string{field}
		remaining := slices.DeleteFunc(slices.Clone(in.Previous.ActiveGoals), func(id string) bool {
			g := goals.FindGoal(catalog, id)
			return g == nil || g.HasField(field) || in.State.IsCompleted(id) || in.State.IsDeclined(id)
		})
		if c, ok := goals.MostUrgent(remaining, catalog); ok {
			verification := out.FollowUp.Text
			if q := s.goalQuestion(ctx, in, c, out); q != nil {
				out.FollowUp.Text = verification + " " + q.Text
				out.FollowUp.GoalID = q.GoalID
				out.FollowUp.Fields = append(out.FollowUp.Fields, q.Fields...)
			}
		}
		return out
	}

	// 4. Ask for the most urgent active goal.
	active := in.State.ActiveGoals
	if len(active) == 0 {
		active = slices.DeleteFunc(slices.Clone(in.Previous.ActiveGoals), func(id string) bool {
			return in.State.IsCompleted(id) || in.State.IsDeclined(id)
		})
	}
	if len(active) > 0 {
		if c, ok := goals.MostUrgent(active, catalog); ok {
			if q := s.goalQuestion(ctx, in, c, out); q != nil {
				out.FollowUp = *q
			}
		}
		return out
	}

	// 5. Keep a brand new conversation open.
	if in.Previous.MessageCount == 0 {
		s.generate(ctx, in, out, model.FollowUpEngagement, model.PurposeEngagement, engagementInstruction(in.Profile.Persona))
		return out
	}

	// 6. Nothing to add.
	return out
}

// goalQuestion produces a question for the candidate goal, or nil when the
// goal has used its attempts, has nothing left to ask, or generation failed.
func (s *Selector) goalQuestion(ctx context.Context, in Input, c goals.Candidate, out *Outcome) *model.FollowUp {
	g := c.Goal
	log := logx.Turn(in.ConversationID, "").With().Str("goal_id", c.ID).Logger()
	if g.MaxAttempts > 0 && attempts(in.State, c.ID, g.ID) >= g.MaxAttempts {
		log.Debug().Int("max_attempts", g.MaxAttempts).Msg("goal attempts exhausted")
		return nil
	}
	needed := goals.StillNeeded(g, in.Data)
	if len(g.Fields) > 0 && len(needed) == 0 {
		return nil
	}
	instr := goalInstruction(g, needed)
	text, err := s.complete(ctx, in, model.PurposeGoalQuestion, instr, out)
	if err != nil {
		log.Warn().Err(err).Msg("goal question suppressed")
		out.FollowUp.Degraded = true
		return nil
	}
	return &model.FollowUp{Kind: model.FollowUpGoalQuestion, Text: text, GoalID: c.ID, Fields: needed}
}

func attempts(state *model.ChannelWorkflowState, ids ...string) int {
	n := 0
	for _, id := range ids {
		n = max(n, state.GoalAttempts[id])
	}
	return n
}

// generate fills out.FollowUp with kind on success and reports whether it did.
func (s *Selector) generate(ctx context.Context, in Input, out *Outcome, kind model.FollowUpKind, purpose model.Purpose, instr Instruction) bool {
	text, err := s.complete(ctx, in, purpose, instr, out)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", in.ConversationID).Str("kind", string(kind)).Msg("follow-up suppressed")
		out.FollowUp = model.FollowUp{Kind: model.FollowUpNone, Degraded: true}
		return false
	}
	out.FollowUp = model.FollowUp{Kind: kind, Text: text}
	return true
}

func (s *Selector) complete(ctx context.Context, in Input, purpose model.Purpose, instr Instruction, out *Outcome) (string, error) {
	if s == nil || s.oracle == nil {
		return "", errors.New("no oracle configured")
	}
	p, err := prompts.RenderFollowUp(ctx, in.Profile.Persona, in.Profile.Company, in.Reply, instr.Text, instr.Examples)
	if err != nil {
		return "", errx.New(err, http.StatusInternalServerError, "follow-up prompt failed").WithKind(errx.KindFollowUp)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	var system string
	if in.Profile.Persona != nil {
		system = in.Profile.Persona.SystemPrompt
	}
	resp, err := s.oracle.Complete(ctx, model.OracleRequest{
		Purpose: purpose,
		System:  system,
		Prompt:  p,
		History: in.History,
	})
	if err != nil {
		return "", errx.WrapOracle(errx.KindFollowUp, err)
	}
	out.Calls = append(out.Calls, Call{Purpose: purpose, Response: resp})
	text := strings.Trim(strings.TrimSpace(resp.Text), `"`)
	if text == "" {
		return "", fmt.Errorf("%s: %w", purpose, errx.ErrEmptyReply)
	}
	return text, nil
}

func (in *Input) normalize() {
	if in.Profile == nil {
		in.Profile = &model.Profile{}
	}
	if in.State == nil {
		in.State = model.NewWorkflowState(in.ConversationID)
	}
	if in.Previous == nil {
		in.Previous = model.NewWorkflowState(in.ConversationID)
	}
	if in.Data == nil {
		in.Data = goals.Overlay(in.Previous.CapturedData, in.TurnData)
	}
}
