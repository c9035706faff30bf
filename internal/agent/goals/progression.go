package goals

import (
	"slices"
	"sort"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/extract"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

// Event names recorded in emittedEvents so each is published at most once.
const (
	EventGoalCompletedPrefix = "goal_completed:"
	EventLeadCaptured        = "lead_captured"
	EventConversationEnded   = "conversation_ended"
)

// Turn is what progression needs to know about the current turn.
type Turn struct {
	Catalog       *model.GoalCatalog
	State         *model.ChannelWorkflowState
	TurnData      map[string]any
	PrimaryIntent string
}

// Advance computes the state update for one turn: captured data, goal
// completion, declines, activation and terminal events. It does not touch storage.
func Advance(t Turn) *model.StatePatch {
	state := t.State
	if state == nil {
		state = model.NewWorkflowState("")
	}
	patch := &model.StatePatch{IncrementMessageCount: true}
	if len(t.TurnData) > 0 {
		patch.CapturedData = make(map[string]any, len(t.TurnData))
		for k, v := range t.TurnData {
			if model.HasRealValue(v) {
				patch.CapturedData[k] = v
			}
		}
	}
	data := Overlay(state.CapturedData, t.TurnData)

	active := slices.Clone(state.ActiveGoals)
	completed := slices.Clone(state.CompletedGoals)
	declined := slices.Clone(state.DeclinedGoals)

	if t.Catalog != nil && t.Catalog.Enabled {
		for _, id := range active {
			if g := FindGoal(t.Catalog, id); g != nil && IsGoalComplete(g, data) {
				patch.CompleteGoals = append(patch.CompleteGoals, id)
			}
		}
		for i := range t.Catalog.Goals {
			g := &t.Catalog.Goals[i]
			if containsGoal(completed, g.ID) || containsGoal(declined, g.ID) || containsGoal(active, g.ID) {
				continue
			}
			if IsGoalComplete(g, data) {
				patch.CompleteGoals = append(patch.CompleteGoals, g.ID)
			}
		}
		active = without(active, patch.CompleteGoals)
		completed = append(completed, patch.CompleteGoals...)

		if t.Catalog.Settings.RespectDeclines && t.PrimaryIntent == model.IntentDecline {
			if c, ok := MostUrgent(active, t.Catalog); ok {
				patch.DeclineGoals = append(patch.DeclineGoals, c.ID)
				active = without(active, patch.DeclineGoals)
				declined = append(declined, c.ID)
			}
		}

		deactivate, activate := activation(t.Catalog, active, completed, declined)
		patch.DeactivateGoals = deactivate
		patch.ActivateGoals = activate
		active = append(without(active, deactivate), activate...)
	}

	for _, id := range patch.CompleteGoals {
		if e := EventGoalCompletedPrefix + id; !state.HasEmitted(e) {
			patch.EmitEvents = append(patch.EmitEvents, e)
		}
	}
	if _, _, ok := extract.ValidatedContact(data); ok && !state.HasEmitted(EventLeadCaptured) {
		patch.EmitEvents = append(patch.EmitEvents, EventLeadCaptured)
	}
	if t.PrimaryIntent == model.IntentEndConversation && len(active) == 0 && !state.HasEmitted(EventConversationEnded) {
		patch.EmitEvents = append(patch.EmitEvents, EventConversationEnded)
	}
	return patch
}

// activation returns the goals to drop and to add so the active set matches the ordering mode.
func activation(catalog *model.GoalCatalog, active, completed, declined []string) (deactivate, activate []string) {
	var eligible []*model.GoalDefinition
	for i := range catalog.Goals {
		g := &catalog.Goals[i]
		if containsGoal(completed, g.ID) || containsGoal(declined, g.ID) {
			continue
		}
		if !prerequisitesMet(g, completed) {
			continue
		}
		eligible = append(eligible, g)
	}

	if catalog.Settings.Strict() {
		sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Order < eligible[j].Order })
		var target *model.GoalDefinition
		if len(eligible) > 0 {
			target = eligible[0]
		}
		for _, id := range active {
			g := FindGoal(catalog, id)
			if g == nil {
				continue
			}
			if target == nil || g.ID != target.ID {
				deactivate = append(deactivate, id)
			}
		}
		if target != nil && !containsGoal(active, target.ID) {
			activate = append(activate, target.ID)
		}
		return deactivate, activate
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Priority.Weight() != b.Priority.Weight() {
			return a.Priority.Weight() > b.Priority.Weight()
		}
		return a.Order < b.Order
	})
	room := catalog.Settings.MaxActiveGoals - len(active)
	perTurn := catalog.Settings.MaxGoalsPerTurn
	for _, g := range eligible {
		if room <= 0 || len(activate) >= perTurn {
			break
		}
		if containsGoal(active, g.ID) {
			continue
		}
		activate = append(activate, g.ID)
		room--
	}
	return nil, activate
}

func prerequisitesMet(g *model.GoalDefinition, completed []string) bool {
	for _, p := range g.Prerequisites {
		if !containsGoal(completed, p) {
			return false
		}
	}
	return true
}

// containsGoal matches id exactly or as an instance-suffixed form.
func containsGoal(ids []string, id string) bool {
	for _, x := range ids {
		if x == id || (len(x) > len(id) && x[:len(id)+1] == id+"_") {
			return true
		}
	}
	return false
}

func without(ids, drop []string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(s string) bool { return slices.Contains(drop, s) })
}
