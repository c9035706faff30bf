package model

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type GoalType string

const (
	GoalTypeDataCollection GoalType = "data_collection"
	GoalTypeScheduling     GoalType = "scheduling"
	GoalTypeOther          GoalType = "other"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Weight ranks priorities for always-active ordering; unknown values rank as medium.
func (p Priority) Weight() int {
	switch Priority(strings.ToLower(string(p))) {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// FieldRequirement names a field a goal needs. Required is nil unless the
// configuration explicitly set it; only an explicit false makes it optional.
type FieldRequirement struct {
	Name       string `yaml:"name" json:"name"`
	Required   *bool  `yaml:"required,omitempty" json:"required,omitempty"`
	Validation string `yaml:"validation,omitempty" json:"validation,omitempty"`
}

// Optional reports whether the field was explicitly marked required: false.
func (f FieldRequirement) Optional() bool {
	return f.Required != nil && !*f.Required
}

// UnmarshalYAML accepts either a bare field name or a mapping.
func (f *FieldRequirement) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Name = strings.TrimSpace(node.Value)
		return nil
	}
	type plain FieldRequirement
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	p.Name = strings.TrimSpace(p.Name)
	*f = FieldRequirement(p)
	return nil
}

// GoalDefinition is immutable once loaded into a catalog.
type GoalDefinition struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Type          GoalType           `json:"type"`
	Priority      Priority           `json:"priority"`
	Order         int                `json:"order"`
	Fields        []FieldRequirement `json:"fields"`
	Prerequisites []string           `json:"prerequisites,omitempty"`
	MaxAttempts   int                `json:"max_attempts"`
	Description   string             `json:"description,omitempty"`
}

// FieldNames returns every declared field name in declaration order.
func (g *GoalDefinition) FieldNames() []string {
	out := make([]string, 0, len(g.Fields))
	for _, f := range g.Fields {
		out = append(out, f.Name)
	}
	return out
}

// HasField reports whether the goal declares the named field.
func (g *GoalDefinition) HasField(name string) bool {
	for _, f := range g.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

type GoalSettings struct {
	MaxActiveGoals  int    `json:"max_active_goals"`
	MaxGoalsPerTurn int    `json:"max_goals_per_turn"`
	StrictOrdering  int    `json:"strict_ordering"`
	RespectDeclines bool   `json:"respect_declines"`
	PrimaryGoal     string `json:"primary_goal,omitempty"`
}

// Strict reports whether only the lowest-order incomplete goal may be active.
// Values between 1 and 6 have no documented meaning and are treated as strict.
func (s GoalSettings) Strict() bool {
	return s.StrictOrdering > 0
}

// GoalCatalog is read-only after resolution and may be shared across turns.
type GoalCatalog struct {
	Enabled  bool             `json:"enabled"`
	Source   string           `json:"source,omitempty"`
	Goals    []GoalDefinition `json:"goals"`
	Settings GoalSettings     `json:"settings"`
}

// ================ Raw configuration blobs ================

// GoalsConfig is the optional, loosely specified goal block of a company or persona.
type GoalsConfig struct {
	Enabled        *bool               `yaml:"enabled" json:"enabled"`
	Goals          []GoalConfig        `yaml:"goals" json:"goals"`
	GlobalSettings *GoalSettingsConfig `yaml:"global_settings" json:"global_settings"`
}

type GoalSettingsConfig struct {
	MaxActiveGoals  *int    `yaml:"max_active_goals" json:"max_active_goals"`
	MaxGoalsPerTurn *int    `yaml:"max_goals_per_turn" json:"max_goals_per_turn"`
	StrictOrdering  *int    `yaml:"strict_ordering" json:"strict_ordering"`
	RespectDeclines *bool   `yaml:"respect_declines" json:"respect_declines"`
	PrimaryGoal     *string `yaml:"primary_goal" json:"primary_goal"`
}

type GoalConfig struct {
	ID            string             `yaml:"id" json:"id"`
	Name          string             `yaml:"name" json:"name"`
	Type          string             `yaml:"type" json:"type"`
	Priority      string             `yaml:"priority" json:"priority"`
	Order         *int               `yaml:"order" json:"order"`
	Fields        []FieldRequirement `yaml:"fields" json:"fields"`
	Prerequisites []string           `yaml:"prerequisites" json:"prerequisites"`
	MaxAttempts   *int               `yaml:"max_attempts" json:"max_attempts"`
	Description   string             `yaml:"description" json:"description"`
}
