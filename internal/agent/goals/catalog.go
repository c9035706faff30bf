package goals

import (
	"strings"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
)

const (
	DefaultMaxActiveGoals  = 3
	DefaultMaxGoalsPerTurn = 2
	DefaultStrictOrdering  = 7
	DefaultMaxAttempts     = 3
)

const (
	SourceCompany = "company"
	SourcePersona = "persona"
)

type source struct {
	name string
	cfg  *model.GoalsConfig
}

// Resolve builds the catalog from the first usable source, company before persona.
// It never fails; missing or malformed optional fields take their defaults one by one.
func Resolve(company, persona *model.GoalsConfig) *model.GoalCatalog {
	for _, src := range []source{{SourceCompany, company}, {SourcePersona, persona}} {
		if c, ok := fromSource(src); ok {
			return c
		}
	}
	return &model.GoalCatalog{Goals: []model.GoalDefinition{}, Settings: DefaultSettings()}
}

func DefaultSettings() model.GoalSettings {
	return model.GoalSettings{
		MaxActiveGoals:  DefaultMaxActiveGoals,
		MaxGoalsPerTurn: DefaultMaxGoalsPerTurn,
		StrictOrdering:  DefaultStrictOrdering,
		RespectDeclines: true,
	}
}

func fromSource(src source) (*model.GoalCatalog, bool) {
	cfg := src.cfg
	if cfg == nil || (cfg.Enabled != nil && !*cfg.Enabled) {
		return nil, false
	}
	defs := make([]model.GoalDefinition, 0, len(cfg.Goals))
	seen := map[string]bool{}
	for i, g := range cfg.Goals {
		id := strings.TrimSpace(g.ID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		defs = append(defs, definition(g, id, i))
	}
	if len(defs) == 0 {
		return nil, false
	}
	return &model.GoalCatalog{
		Enabled:  true,
		Source:   src.name,
		Goals:    defs,
		Settings: settings(cfg.GlobalSettings),
	}, true
}

func definition(g model.GoalConfig, id string, index int) model.GoalDefinition {
	d := model.GoalDefinition{
		ID:            id,
		Name:          strings.TrimSpace(g.Name),
		Type:          model.GoalType(strings.ToLower(strings.TrimSpace(g.Type))),
		Priority:      normalizePriority(g.Priority),
		Order:         index + 1,
		Prerequisites: g.Prerequisites,
		MaxAttempts:   DefaultMaxAttempts,
		Description:   g.Description,
	}
	if d.Name == "" {
		d.Name = id
	}
	if d.Type == "" {
		d.Type = model.GoalTypeDataCollection
	}
	if g.Order != nil {
		d.Order = *g.Order
	}
	if g.MaxAttempts != nil && *g.MaxAttempts > 0 {
		d.MaxAttempts = *g.MaxAttempts
	}
	for _, f := range g.Fields {
		if f.Name == "" {
			continue
		}
		d.Fields = append(d.Fields, f)
	}
	return d
}

func normalizePriority(p string) model.Priority {
	switch pr := model.Priority(strings.ToLower(strings.TrimSpace(p))); pr {
	case model.PriorityCritical, model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
		return pr
	default:
		return model.PriorityMedium
	}
}

func settings(raw *model.GoalSettingsConfig) model.GoalSettings {
	s := DefaultSettings()
	if raw == nil {
		return s
	}
	if raw.MaxActiveGoals != nil && *raw.MaxActiveGoals > 0 {
		s.MaxActiveGoals = *raw.MaxActiveGoals
	}
	if raw.MaxGoalsPerTurn != nil && *raw.MaxGoalsPerTurn > 0 {
		s.MaxGoalsPerTurn = *raw.MaxGoalsPerTurn
	}
	if raw.StrictOrdering != nil && *raw.StrictOrdering >= 0 {
		s.StrictOrdering = *raw.StrictOrdering
	}
	if raw.RespectDeclines != nil {
		s.RespectDeclines = *raw.RespectDeclines
	}
	if raw.PrimaryGoal != nil {
		s.PrimaryGoal = strings.TrimSpace(*raw.PrimaryGoal)
	}
	return s
}
