package model

import (
	"slices"
	"time"
)

// ChannelWorkflowState is the persisted record of a conversation's progress.
type ChannelWorkflowState struct {
	ConversationID string         `json:"conversation_id"`
	CapturedData   map[string]any `json:"captured_data"`
	ActiveGoals    []string       `json:"active_goals"`
	CompletedGoals []string       `json:"completed_goals"`
	DeclinedGoals  []string       `json:"declined_goals,omitempty"`
	GoalAttempts   map[string]int `json:"goal_attempts,omitempty"`
	MessageCount   int            `json:"message_count"`
	EmittedEvents  []string       `json:"emitted_events"`
	LastUpdated    time.Time      `json:"last_updated"`
}

// NewWorkflowState returns the all-empty state used on first reference.
func NewWorkflowState(conversationID string) *ChannelWorkflowState {
	return &ChannelWorkflowState{
		ConversationID: conversationID,
		CapturedData:   map[string]any{},
		ActiveGoals:    []string{},
		CompletedGoals: []string{},
		DeclinedGoals:  []string{},
		GoalAttempts:   map[string]int{},
		EmittedEvents:  []string{},
	}
}

// Normalize replaces nil collections so decoded states behave like fresh ones.
func (s *ChannelWorkflowState) Normalize() *ChannelWorkflowState {
	if s.CapturedData == nil {
		s.CapturedData = map[string]any{}
	}
	if s.ActiveGoals == nil {
		s.ActiveGoals = []string{}
	}
	if s.CompletedGoals == nil {
		s.CompletedGoals = []string{}
	}
	if s.DeclinedGoals == nil {
		s.DeclinedGoals = []string{}
	}
	if s.GoalAttempts == nil {
		s.GoalAttempts = map[string]int{}
	}
	if s.EmittedEvents == nil {
		s.EmittedEvents = []string{}
	}
	return s
}

// Clone returns a working copy that shares no mutable collections with s.
func (s *ChannelWorkflowState) Clone() *ChannelWorkflowState {
	if s == nil {
		return nil
	}
	c := *s
	c.CapturedData = make(map[string]any, len(s.CapturedData))
	for k, v := range s.CapturedData {
		c.CapturedData[k] = v
	}
	c.ActiveGoals = slices.Clone(s.ActiveGoals)
	c.CompletedGoals = slices.Clone(s.CompletedGoals)
	c.DeclinedGoals = slices.Clone(s.DeclinedGoals)
	c.EmittedEvents = slices.Clone(s.EmittedEvents)
	c.GoalAttempts = make(map[string]int, len(s.GoalAttempts))
	for k, v := range s.GoalAttempts {
		c.GoalAttempts[k] = v
	}
	return c.Normalize()
}

func (s *ChannelWorkflowState) IsActive(goalID string) bool {
	return slices.Contains(s.ActiveGoals, goalID)
}

func (s *ChannelWorkflowState) IsCompleted(goalID string) bool {
	return slices.Contains(s.CompletedGoals, goalID)
}

func (s *ChannelWorkflowState) IsDeclined(goalID string) bool {
	return slices.Contains(s.DeclinedGoals, goalID)
}

func (s *ChannelWorkflowState) HasEmitted(event string) bool {
	return slices.Contains(s.EmittedEvents, event)
}

// StatePatch is an explicit set of field updates. Applying a patch never
// removes captured data, so concurrent partial updates cannot drop values.
type StatePatch struct {
	CapturedData          map[string]any `json:"captured_data,omitempty"`
	CompleteGoals         []string       `json:"complete_goals,omitempty"`
	DeclineGoals          []string       `json:"decline_goals,omitempty"`
	DeactivateGoals       []string       `json:"deactivate_goals,omitempty"`
	ActivateGoals         []string       `json:"activate_goals,omitempty"`
	IncrementMessageCount bool           `json:"increment_message_count,omitempty"`
	GoalAttempts          map[string]int `json:"goal_attempts,omitempty"`
	EmitEvents            []string       `json:"emit_events,omitempty"`
}

// Empty reports whether applying the patch would change nothing but lastUpdated.
func (p *StatePatch) Empty() bool {
	return p == nil || (len(p.CapturedData) == 0 && len(p.CompleteGoals) == 0 &&
		len(p.DeclineGoals) == 0 && len(p.DeactivateGoals) == 0 && len(p.ActivateGoals) == 0 &&
		!p.IncrementMessageCount && len(p.GoalAttempts) == 0 && len(p.EmitEvents) == 0)
}

// Apply mutates s in place. Removals run before activations so a goal can be
// completed and its successor activated by the same patch.
func (p *StatePatch) Apply(s *ChannelWorkflowState, now time.Time) {
	s.Normalize()
	if p == nil {
		return
	}
	for k, v := range p.CapturedData {
		if v == nil {
			continue
		}
		s.CapturedData[k] = v
	}
	for _, id := range p.CompleteGoals {
		s.ActiveGoals = remove(s.ActiveGoals, id)
		s.CompletedGoals = appendUnique(s.CompletedGoals, id)
	}
	for _, id := range p.DeclineGoals {
		s.ActiveGoals = remove(s.ActiveGoals, id)
		s.DeclinedGoals = appendUnique(s.DeclinedGoals, id)
	}
	for _, id := range p.DeactivateGoals {
		s.ActiveGoals = remove(s.ActiveGoals, id)
	}
	for _, id := range p.ActivateGoals {
		if s.IsCompleted(id) || s.IsDeclined(id) {
			continue
		}
		s.ActiveGoals = appendUnique(s.ActiveGoals, id)
	}
	if p.IncrementMessageCount {
		s.MessageCount++
	}
	for id, n := range p.GoalAttempts {
		s.GoalAttempts[id] += n
	}
	for _, e := range p.EmitEvents {
		s.EmittedEvents = appendUnique(s.EmittedEvents, e)
	}
	s.LastUpdated = now.UTC()
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

func remove(list []string, v string) []string {
	return slices.DeleteFunc(list, func(s string) bool { return s == v })
}
