package model

// Persona describes the agent's voice and its optional goal and intent configuration.
type Persona struct {
	ID                  string       `yaml:"id" json:"id"`
	Name                string       `yaml:"name" json:"name"`
	Role                string       `yaml:"role" json:"role"`
	Tone                string       `yaml:"tone" json:"tone"`
	Style               string       `yaml:"style" json:"style"`
	Language            string       `yaml:"language" json:"language"`
	SystemPrompt        string       `yaml:"system_prompt" json:"system_prompt"`
	Greeting            string       `yaml:"greeting" json:"greeting"`
	Farewell            string       `yaml:"farewell" json:"farewell"`
	EngagementQuestions []string     `yaml:"engagement_questions" json:"engagement_questions"`
	Intents             []IntentRule `yaml:"intents" json:"intents"`
	Goals               *GoalsConfig `yaml:"goals" json:"goals"`
}

// IntentRule is a persona-configured trigger list for the rule-based classifier.
type IntentRule struct {
	Name     string   `yaml:"name" json:"name"`
	Triggers []string `yaml:"triggers" json:"triggers"`
	Patterns []string `yaml:"patterns" json:"patterns"`
	Priority int      `yaml:"priority" json:"priority"`
	Response string   `yaml:"response" json:"response"`
}

// Company holds business facts keyed by CompanyInfoCategories.
type Company struct {
	ID           string            `yaml:"id" json:"id"`
	Name         string            `yaml:"name" json:"name"`
	BusinessType string            `yaml:"business_type" json:"business_type"`
	Timezone     string            `yaml:"timezone" json:"timezone"`
	Facts        map[string]string `yaml:"facts" json:"facts"`
	Goals        *GoalsConfig      `yaml:"goals" json:"goals"`
}

// Profile is the read-only configuration a turn runs against.
type Profile struct {
	Company *Company
	Persona *Persona
	Catalog *GoalCatalog
}

// CatalogKey identifies the company and persona pairing a catalog was resolved for.
func (p *Profile) CatalogKey() string {
	var c, s string
	if p.Company != nil {
		c = p.Company.ID
	}
	if p.Persona != nil {
		s = p.Persona.ID
	}
	return c + "/" + s
}
