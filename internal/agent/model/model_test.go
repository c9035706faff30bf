package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestHasRealValue(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want bool
	}{
		{"nil", nil, false},
		{"blank", "  ", false},
		{"null string", "null", false},
		{"undefined", "Undefined", false},
		{"scalar", "David", true},
		{"zero number", 0, true},
		{"false", false, true},
		{"wrapped", map[string]any{"value": "x", "confidence": 0.9}, true},
		{"wrapped null", map[string]any{"value": nil, "source": "llm_intent_detection"}, false},
		{"field value", FieldValue{Value: "x"}, true},
		{"nil field value ptr", (*FieldValue)(nil), false},
		{"empty slice", []any{}, false},
		{"empty map", map[string]any{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HasRealValue(tc.in))
		})
	}
}

func TestLookup(t *testing.T) {
	data := map[string]any{"a": " x ", "b": FieldValue{Value: 42}, "c": map[string]any{"value": nil}}
	assert.Equal(t, "x", Lookup(data, "a"))
	assert.Equal(t, "42", Lookup(data, "b"))
	assert.Equal(t, "", Lookup(data, "c"))
	assert.Equal(t, "", Lookup(nil, "a"))
}

func TestStatePatch_Apply(t *testing.T) {
	s := NewWorkflowState("c1")
	s.CapturedData["email"] = "old@x.com"
	s.ActiveGoals = []string{"a", "b"}
	s.DeclinedGoals = []string{"d"}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	p := &StatePatch{
		CapturedData:          map[string]any{"email": "new@x.com", "phone": nil},
		CompleteGoals:         []string{"a"},
		DeactivateGoals:       []string{"b"},
		ActivateGoals:         []string{"c", "a", "d"},
		IncrementMessageCount: true,
		GoalAttempts:          map[string]int{"c": 1},
		EmitEvents:            []string{"goal_completed:a"},
	}
	assert.False(t, p.Empty())
	p.Apply(s, now)

	assert.Equal(t, "new@x.com", s.CapturedData["email"])
	assert.NotContains(t, s.CapturedData, "phone")
	assert.Equal(t, []string{"c"}, s.ActiveGoals)
	assert.Equal(t, []string{"a"}, s.CompletedGoals)
	assert.Equal(t, 1, s.MessageCount)
	assert.Equal(t, 1, s.GoalAttempts["c"])
	assert.True(t, s.HasEmitted("goal_completed:a"))
	assert.Equal(t, time.UTC, s.LastUpdated.Location())

	assert.True(t, (*StatePatch)(nil).Empty())
	assert.True(t, (&StatePatch{}).Empty())
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := NewWorkflowState("c1")
	s.ActiveGoals = append(s.ActiveGoals, "a")
	s.CapturedData["k"] = "v"

	c := s.Clone()
	c.ActiveGoals[0] = "z"
	c.CapturedData["k"] = "changed"
	c.GoalAttempts["a"] = 3

	assert.Equal(t, "a", s.ActiveGoals[0])
	assert.Equal(t, "v", s.CapturedData["k"])
	assert.Empty(t, s.GoalAttempts)
	assert.Nil(t, (*ChannelWorkflowState)(nil).Clone())
}

func TestState_DecodeNormalizes(t *testing.T) {
	var s ChannelWorkflowState
	require.NoError(t, json.Unmarshal([]byte(`{"conversation_id":"c1","message_count":2}`), &s))
	s.Normalize()
	assert.NotNil(t, s.CapturedData)
	assert.NotNil(t, s.EmittedEvents)
	assert.Equal(t, 2, s.MessageCount)
}

func TestFieldRequirement_YAML(t *testing.T) {
	var g GoalConfig
	require.NoError(t, yaml.Unmarshal([]byte(`
id: contact
fields:
  - firstName
  - name: " phone "
    required: false
  - name: email
    required: true
    validation: email
`), &g))
	require.Len(t, g.Fields, 3)
	assert.Equal(t, "firstName", g.Fields[0].Name)
	assert.False(t, g.Fields[0].Optional())
	assert.Equal(t, "phone", g.Fields[1].Name)
	assert.True(t, g.Fields[1].Optional())
	assert.False(t, g.Fields[2].Optional())
	assert.Equal(t, "email", g.Fields[2].Validation)
}

func TestPriorityAndSettings(t *testing.T) {
	assert.Equal(t, 4, PriorityCritical.Weight())
	assert.Equal(t, 3, Priority("HIGH").Weight())
	assert.Equal(t, 2, Priority("whatever").Weight())
	assert.Equal(t, 1, PriorityLow.Weight())

	assert.False(t, GoalSettings{StrictOrdering: 0}.Strict())
	assert.True(t, GoalSettings{StrictOrdering: 3}.Strict())
	assert.True(t, GoalSettings{StrictOrdering: 7}.Strict())
}

func TestCost(t *testing.T) {
	in, out, total := ComputeCost(&TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000}, ResolvePricing("gemini-2.5-flash"))
	assert.InDelta(t, 0.30, in, 1e-9)
	assert.InDelta(t, 1.25, out, 1e-9)
	assert.InDelta(t, 1.55, total, 1e-9)

	_, _, total = ComputeCost(nil, ResolvePricing("unknown"))
	assert.Zero(t, total)

	u := &TokenUsage{InputTokens: 1}
	u.Add(&TokenUsage{InputTokens: 2, OutputTokens: 3})
	u.Add(nil)
	assert.Equal(t, TokenUsage{InputTokens: 3, OutputTokens: 3}, *u)
}
