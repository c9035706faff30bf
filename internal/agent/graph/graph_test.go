package graph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/goals"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/llm"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/repo"
	errx "github.com/Chative-core-poc-v1/salesagent/internal/core/error"
)

// scriptedModel answers every call with respond and records the inputs.
type scriptedModel struct {
	mu      sync.Mutex
	respond func(msgs []*schema.Message) (string, error)
	inputs  [][]*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()
	text, err := m.respond(input)
	if err != nil {
		return nil, err
	}
	return &schema.Message{
		Role:    schema.Assistant,
		Content: text,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		},
	}, nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *scriptedModel) systemPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, in := range m.inputs {
		if len(in) > 0 && in[0].Role == schema.System {
			out = append(out, in[0].Content)
		}
	}
	return out
}

func lastUser(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == schema.User {
			return msgs[i].Content
		}
	}
	return ""
}

// replyScript answers follow-up instruction prompts with "FOLLOW-UP" and
// everything else with "REPLY".
func replyScript(msgs []*schema.Message) (string, error) {
	if strings.Contains(lastUser(msgs), "Task:") {
		return "FOLLOW-UP", nil
	}
	return "REPLY", nil
}

func intentJSON(t *testing.T, primary string, extractions ...map[string]any) func([]*schema.Message) (string, error) {
	t.Helper()
	if extractions == nil {
		extractions = []map[string]any{}
	}
	b, err := json.Marshal(map[string]any{
		"primary_intent":         primary,
		"extractions":            extractions,
		"company_info_requested": []string{},
		"needs_deep_context":     false,
		"complexity":             "simple",
		"emotional_tone":         "neutral",
		"engagement_score":       0.6,
		"conversion_score":       0.4,
	})
	require.NoError(t, err)
	return func([]*schema.Message) (string, error) { return string(b), nil }
}

type harness struct {
	runner Runner
	store  *repo.MemoryWorkflowStateStore
	intent *scriptedModel
	reply  *scriptedModel
}

func newHarness(t *testing.T, intent, reply func([]*schema.Message) (string, error)) *harness {
	t.Helper()
	h := &harness{
		store:  repo.NewMemoryWorkflowStateStore(),
		intent: &scriptedModel{respond: intent},
		reply:  &scriptedModel{respond: reply},
	}
	oracle, err := llm.NewChatOracle(&llm.ChatModels{
		Intent:          h.intent,
		Reply:           h.reply,
		IntentModelName: "gemini-2.5-flash-lite",
		ReplyModelName:  "gemini-2.5-flash",
	})
	require.NoError(t, err)
	h.runner, err = BuildTurnGraph(context.Background(), Config{Oracle: oracle})
	require.NoError(t, err)
	return h
}

func intPtr(i int) *int { return &i }

func gymProfile() *model.Profile {
	catalog := goals.Resolve(&model.GoalsConfig{
		Goals: []model.GoalConfig{
			{ID: "collect_contact_info", Name: "Contact info", Priority: "critical", Order: intPtr(1),
				Fields: []model.FieldRequirement{{Name: "firstName"}, {Name: "email", Validation: "email"}}},
			{ID: "schedule_visit", Type: "scheduling", Priority: "high", Order: intPtr(2), MaxAttempts: intPtr(2),
				Fields: []model.FieldRequirement{{Name: "preferredTime"}, {Name: "visitDate"}}},
		},
	}, nil)
	return &model.Profile{
		Company: &model.Company{ID: "ironworks", Name: "Ironworks", BusinessType: "gym", Facts: map[string]string{
			"pricing": "Memberships from $49 a month",
			"hours":   "Open 5am to 11pm",
		}},
		Persona: &model.Persona{
			ID: "maya", Name: "Maya", SystemPrompt: "You are friendly.",
			Intents: []model.IntentRule{{Name: model.IntentPricingInquiry, Triggers: []string{"price", "cost"}, Response: "Plans start at $49."}},
		},
		Catalog: catalog,
	}
}

func (h *harness) run(t *testing.T, msg string, st *model.ChannelWorkflowState, profile *model.Profile) (*model.TurnResult, error) {
	t.Helper()
	ctx := context.Background()
	if st != nil {
		require.NoError(t, h.store.Save(ctx, st.ConversationID, st))
	} else {
		st = model.NewWorkflowState("c1")
	}
	return h.runner.Invoke(ctx, &model.TurnInput{
		ConversationID: st.ConversationID,
		TurnID:         "t1",
		Message:        msg,
		State:          st,
		Profile:        profile,
		Updater:        h.store,
	})
}

func TestContactCaptureVerifies(t *testing.T) {
	h := newHarness(t, intentJSON(t, model.IntentProvideInformation,
		map[string]any{"field": "firstName", "value": "David", "confidence": 0.95},
		map[string]any{"field": "email", "value": "david@x.com", "confidence": 0.95},
	), replyScript)
	st := model.NewWorkflowState("c1")
	st.ActiveGoals = []string{"collect_contact_info"}
	st.MessageCount = 1

	res, err := h.run(t, "David, david@x.com", st, gymProfile())
	require.NoError(t, err)

	assert.Equal(t, "David", model.Lookup(res.Extracted, "firstName"))
	assert.Equal(t, "david@x.com", model.Lookup(res.Extracted, "email"))
	assert.Equal(t, model.FollowUpVerification, res.FollowUp.Kind)
	assert.Empty(t, res.FollowUp.GoalID)
	assert.Equal(t, "REPLY", res.Reply)
	assert.Equal(t, "REPLY\n\nFOLLOW-UP", res.Text())

	assert.Contains(t, res.State.CompletedGoals, "collect_contact_info")
	assert.Equal(t, []string{"schedule_visit"}, res.State.ActiveGoals)
	assert.Equal(t, 2, res.State.MessageCount)
	assert.ElementsMatch(t, []string{"goal_completed:collect_contact_info", "lead_captured"}, res.Events)

	saved, err := h.store.Load(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "david@x.com", model.Lookup(saved.CapturedData, "email"))
	assert.Empty(t, saved.GoalAttempts)

	assert.Equal(t, 300, res.Usage.InputTokens)
	assert.Equal(t, 60, res.Usage.OutputTokens)
	assert.Greater(t, res.CostUSD, 0.0)
}

type usageSink struct {
	mu       sync.Mutex
	purposes []string
}

func (s *usageSink) Emit(_ context.Context, event string, payload map[string]any) {
	if event != "llm.usage" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purposes = append(s.purposes, payload["purpose"].(string))
}

func TestUsageIsLabelledPerFollowUpCall(t *testing.T) {
	h := newHarness(t, intentJSON(t, model.IntentProvideInformation,
		map[string]any{"field": "firstName", "value": "David"},
		map[string]any{"field": "email", "value": "david@x.com"},
	), replyScript)
	sink := &usageSink{}
	oracle, err := llm.NewChatOracle(&llm.ChatModels{Intent: h.intent, Reply: h.reply})
	require.NoError(t, err)
	h.runner, err = BuildTurnGraph(context.Background(), Config{Oracle: oracle, Sink: sink})
	require.NoError(t, err)

	profile := gymProfile()
	profile.Catalog.Settings.StrictOrdering = 0
	st := model.NewWorkflowState("c1")
	st.ActiveGoals = []string{"collect_contact_info", "schedule_visit"}
	st.MessageCount = 1

	res, err := h.run(t, "David, david@x.com", st, profile)
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpVerification, res.FollowUp.Kind)
	assert.Equal(t, "schedule_visit", res.FollowUp.GoalID)
	assert.Equal(t, []string{"classify", "reply", "verification", "goal_question"}, sink.purposes)
}

func TestFirstTurnWithoutGoalsAsksEngagement(t *testing.T) {
	h := newHarness(t, intentJSON(t, model.IntentGreeting), replyScript)
	res, err := h.run(t, "hello", nil, &model.Profile{Persona: &model.Persona{Name: "Maya"}})
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpEngagement, res.FollowUp.Kind)
	assert.Equal(t, "FOLLOW-UP", res.FollowUp.Text)
	assert.Equal(t, 1, res.State.MessageCount)
}

func TestPatternCapturesHintedAnswerWithoutOracle(t *testing.T) {
	h := newHarness(t, func([]*schema.Message) (string, error) {
		return "", errors.New("classifier unavailable")
	}, replyScript)
	st := model.NewWorkflowState("c1")
	st.ActiveGoals = []string{"schedule_visit"}
	st.CompletedGoals = []string{"collect_contact_info"}
	st.MessageCount = 4

	res, err := h.run(t, "evening", st, gymProfile())
	require.NoError(t, err)

	fv, ok := res.Extracted["preferredTime"].(model.FieldValue)
	require.True(t, ok)
	assert.Equal(t, "evening", fv.Value)
	assert.Equal(t, model.SourcePatternMatch, fv.Source)
	assert.True(t, res.Classification.Fallback)
	assert.Equal(t, model.IntentGeneralConversation, res.PrimaryIntent)

	assert.Equal(t, model.FollowUpGoalQuestion, res.FollowUp.Kind)
	assert.Equal(t, []string{"visitDate"}, res.FollowUp.Fields)
}

func TestEndConversationWithActiveGoalAsksGoalQuestion(t *testing.T) {
	h := newHarness(t, intentJSON(t, model.IntentEndConversation), replyScript)
	st := model.NewWorkflowState("c1")
	st.ActiveGoals = []string{"schedule_visit"}
	st.CompletedGoals = []string{"collect_contact_info"}
	st.MessageCount = 3

	res, err := h.run(t, "ok bye", st, gymProfile())
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpGoalQuestion, res.FollowUp.Kind)
	assert.Equal(t, "schedule_visit", res.FollowUp.GoalID)
	assert.Equal(t, 1, res.State.GoalAttempts["schedule_visit"])
	assert.NotContains(t, res.Events, goals.EventConversationEnded)
}

func TestEndConversationWithoutGoalsExits(t *testing.T) {
	h := newHarness(t, intentJSON(t, model.IntentEndConversation), replyScript)
	st := model.NewWorkflowState("c1")
	st.CompletedGoals = []string{"collect_contact_info", "schedule_visit"}
	st.MessageCount = 6

	res, err := h.run(t, "thanks, bye", st, gymProfile())
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpExit, res.FollowUp.Kind)
	assert.Contains(t, res.Events, goals.EventConversationEnded)
}

func TestRuleIntentAndFactsReachReplyPrompt(t *testing.T) {
	h := newHarness(t, func([]*schema.Message) (string, error) {
		return "not json at all", nil
	}, replyScript)
	res, err := h.run(t, "what's the price?", nil, gymProfile())
	require.NoError(t, err)
	assert.Equal(t, model.IntentPricingInquiry, res.PrimaryIntent)

	prompts := h.reply.systemPrompts()
	require.NotEmpty(t, prompts)
	assert.Contains(t, prompts[0], "Approved answer you may adapt: Plans start at $49.")
	assert.Contains(t, prompts[0], "Intent: pricing_inquiry.")
}

func TestRequestedFactsOnly(t *testing.T) {
	h := newHarness(t, func([]*schema.Message) (string, error) {
		return `{"primary_intent":"ask_question","extractions":[],"company_info_requested":["hours"]}`, nil
	}, replyScript)
	_, err := h.run(t, "when are you open?", nil, gymProfile())
	require.NoError(t, err)

	reply := h.reply.systemPrompts()[0]
	assert.Contains(t, reply, "- hours: Open 5am to 11pm")
	assert.NotContains(t, reply, "$49 a month")
}

func TestReplyFailurePropagatesAfterPersist(t *testing.T) {
	h := newHarness(t, intentJSON(t, model.IntentGreeting), func([]*schema.Message) (string, error) {
		return "", errors.New("provider down")
	})
	res, err := h.run(t, "hello", nil, gymProfile())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errx.IsKind(err, errx.KindReply))
	assert.ErrorIs(t, err, errx.ErrReplyFailed)

	saved, lerr := h.store.Load(context.Background(), "c1")
	require.NoError(t, lerr)
	assert.Equal(t, 1, saved.MessageCount)
}

func TestEmptyReplyFails(t *testing.T) {
	h := newHarness(t, intentJSON(t, model.IntentGreeting), func([]*schema.Message) (string, error) {
		return "   ", nil
	})
	_, err := h.run(t, "hello", nil, gymProfile())
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrEmptyReply)
}

func TestFollowUpFailureKeepsReply(t *testing.T) {
	h := newHarness(t, intentJSON(t, model.IntentGreeting), func(msgs []*schema.Message) (string, error) {
		if strings.Contains(lastUser(msgs), "Task:") {
			return "", errors.New("timeout")
		}
		return "REPLY", nil
	})
	res, err := h.run(t, "hello", nil, gymProfile())
	require.NoError(t, err)
	assert.Equal(t, "REPLY", res.Reply)
	assert.Equal(t, model.FollowUpNone, res.FollowUp.Kind)
	assert.True(t, res.FollowUp.Degraded)
	assert.Empty(t, res.State.GoalAttempts)
}

type failingUpdater struct{}

func (failingUpdater) Update(context.Context, string, *model.StatePatch) (*model.ChannelWorkflowState, error) {
	return nil, errors.New("redis down")
}

func TestStateStoreFailurePropagates(t *testing.T) {
	h := newHarness(t, intentJSON(t, model.IntentGreeting), replyScript)
	_, err := h.runner.Invoke(context.Background(), &model.TurnInput{
		ConversationID: "c1",
		Message:        "hello",
		Profile:        gymProfile(),
		Updater:        failingUpdater{},
	})
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindStateStore))
	assert.ErrorIs(t, err, errx.ErrStateStore)
	assert.Empty(t, h.reply.inputs)
}

func TestInvalidInput(t *testing.T) {
	h := newHarness(t, intentJSON(t, model.IntentGreeting), replyScript)
	_, err := h.runner.Invoke(context.Background(), &model.TurnInput{Message: "hi", Updater: h.store})
	assert.True(t, errx.IsKind(err, errx.KindValidation))

	_, err = h.runner.Invoke(context.Background(), &model.TurnInput{ConversationID: "c1", Message: " ", Updater: h.store})
	assert.True(t, errx.IsKind(err, errx.KindValidation))

	_, err = h.runner.Invoke(context.Background(), nil)
	assert.True(t, errx.IsKind(err, errx.KindValidation))
}
