package persona

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/goals"
	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/salesagent/internal/core/error"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

const defaultSystemPrompt = "You are a friendly, concise sales assistant. Help the customer, answer questions using only the facts you are given and keep the conversation moving toward a visit."

// LoadCompany reads a company profile from a YAML file.
func LoadCompany(path string) (*model.Company, error) {
	var c model.Company
	if err := decodeFile(path, &c); err != nil {
		return nil, err
	}
	if c.Facts == nil {
		c.Facts = map[string]string{}
	}
	for k, v := range c.Facts {
		key := strings.ToLower(strings.TrimSpace(k))
		if key != k {
			delete(c.Facts, k)
			c.Facts[key] = v
		}
	}
	return &c, nil
}

// LoadPersona reads a persona from a YAML file.
func LoadPersona(path string) (*model.Persona, error) {
	var p model.Persona
	if err := decodeFile(path, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		p.SystemPrompt = defaultSystemPrompt
	}
	if p.Name == "" {
		p.Name = "Assistant"
	}
	return &p, nil
}

// Load reads both files and resolves the goal catalog for the pairing.
func Load(cfg model.ProfileConfig) (*model.Profile, error) {
	company, err := LoadCompany(cfg.CompanyPath)
	if err != nil {
		return nil, err
	}
	p, err := LoadPersona(cfg.PersonaPath)
	if err != nil {
		return nil, err
	}
	catalog := goals.Resolve(company.Goals, p.Goals)
	logx.Info().
		Str("company_id", company.ID).
		Str("persona_id", p.ID).
		Str("goal_source", catalog.Source).
		Int("goals", len(catalog.Goals)).
		Bool("strict", catalog.Settings.Strict()).
		Msg("profile loaded")
	return &model.Profile{Company: company, Persona: p, Catalog: catalog}, nil
}

func decodeFile(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errx.New(fmt.Errorf("read %s: %w", path, err), http.StatusInternalServerError, "configuration file unavailable").WithKind(errx.KindConfig)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return errx.New(fmt.Errorf("decode %s: %w", path, err), http.StatusInternalServerError, "configuration file invalid").WithKind(errx.KindConfig)
	}
	return nil
}
