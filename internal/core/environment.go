package core

import "strings"

// Environment selects log format and level for the process.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// IsProduction reports whether JSON logs at info level should be used.
func (e Environment) IsProduction() bool {
	return e == Production
}

// ParseEnvironment maps ENVIRONMENT to a known value; anything else is Development.
func ParseEnvironment(v string) Environment {
	switch e := Environment(strings.ToLower(strings.TrimSpace(v))); e {
	case Production, Staging, Testing:
		return e
	default:
		return Development
	}
}
