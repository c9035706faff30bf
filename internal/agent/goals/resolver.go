package goals

import (
	"sort"
	"strings"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/extract"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

// FindGoal matches id exactly, then as an instance-suffixed form of a catalog id.
func FindGoal(catalog *model.GoalCatalog, id string) *model.GoalDefinition {
	if catalog == nil || id == "" {
		return nil
	}
	for i := range catalog.Goals {
		if catalog.Goals[i].ID == id {
			return &catalog.Goals[i]
		}
	}
	for i := range catalog.Goals {
		if strings.HasPrefix(id, catalog.Goals[i].ID+"_") {
			return &catalog.Goals[i]
		}
	}
	return nil
}

// Candidate pairs an active goal id with its definition.
type Candidate struct {
	ID   string
	Goal *model.GoalDefinition
}

// Rank resolves ids against the catalog, drops unknown ones and sorts the
// rest by urgency. Strict mode sorts by order only.
func Rank(activeIDs []string, catalog *model.GoalCatalog) []Candidate {
	if catalog == nil {
		return nil
	}
	out := make([]Candidate, 0, len(activeIDs))
	for _, id := range activeIDs {
		if g := FindGoal(catalog, id); g != nil {
			out = append(out, Candidate{ID: id, Goal: g})
		}
	}
	strict := catalog.Settings.Strict()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Goal, out[j].Goal
		if !strict && a.Priority.Weight() != b.Priority.Weight() {
			return a.Priority.Weight() > b.Priority.Weight()
		}
		return a.Order < b.Order
	})
	return out
}

// MostUrgentGoal returns the goal that should drive the next question.
func MostUrgentGoal(activeIDs []string, catalog *model.GoalCatalog) *model.GoalDefinition {
	if c, ok := MostUrgent(activeIDs, catalog); ok {
		return c.Goal
	}
	return nil
}

// MostUrgent is MostUrgentGoal keeping the active id, which may carry an instance suffix.
func MostUrgent(activeIDs []string, catalog *model.GoalCatalog) (Candidate, bool) {
	ranked := Rank(activeIDs, catalog)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}

func fieldSatisfied(f model.FieldRequirement, data map[string]any) bool {
	return extract.Valid(f.Name, f.Validation, data[f.Name])
}

// IsGoalComplete reports whether every required field holds a valid value.
// A goal with no fields never completes on its own.
func IsGoalComplete(goal *model.GoalDefinition, data map[string]any) bool {
	if goal == nil || len(goal.Fields) == 0 {
		return false
	}
	for _, f := range goal.Fields {
		if fieldSatisfied(f, data) {
			continue
		}
		if f.Optional() && !model.HasRealValue(data[f.Name]) {
			continue
		}
		return false
	}
	return true
}

// StillNeeded lists required fields of goal that data does not yet satisfy.
func StillNeeded(goal *model.GoalDefinition, data map[string]any) []string {
	if goal == nil {
		return nil
	}
	var out []string
	for _, f := range goal.Fields {
		if f.Optional() || fieldSatisfied(f, data) {
			continue
		}
		out = append(out, f.Name)
	}
	return out
}

// Overlay merges turn over persisted; non-empty values from the current turn win.
func Overlay(persisted, turn map[string]any) map[string]any {
	out := make(map[string]any, len(persisted)+len(turn))
	for k, v := range persisted {
		out[k] = v
	}
	for k, v := range turn {
		if model.HasRealValue(v) || !model.HasRealValue(out[k]) {
			out[k] = v
		}
	}
	return out
}
