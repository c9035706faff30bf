package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Chative-core-poc-v1/salesagent/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/salesagent/pkg/logger"
)

// DefaultThreshold is the minimum confidence a rule match needs to be returned.
const DefaultThreshold = 0.5

const (
	triggerBase = 0.5
	triggerStep = 0.15
	patternHit  = 0.9
	maxScore    = 0.95
)

type compiledRule struct {
	rule     model.IntentRule
	words    []string
	triggers []*regexp.Regexp
	patterns []*regexp.Regexp
}

// Classifier scores a message against persona intent rules without the LLM.
type Classifier struct {
	rules     []compiledRule
	threshold float64
}

// NewClassifier compiles rules once; invalid regular expressions are skipped.
func NewClassifier(rules []model.IntentRule, threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	c := &Classifier{threshold: threshold}
	for _, r := range rules {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		cr := compiledRule{rule: r}
		for _, t := range r.Triggers {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			cr.words = append(cr.words, t)
			cr.triggers = append(cr.triggers, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(t)+`\b`))
		}
		for _, p := range r.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				logx.Warn().Err(err).Str("intent", r.Name).Str("pattern", p).Msg("skipping invalid intent pattern")
				continue
			}
			cr.patterns = append(cr.patterns, re)
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// Classify returns the best rule match at or above the threshold, or nil.
func (c *Classifier) Classify(message string) *model.RuleMatch {
	msg := strings.TrimSpace(message)
	if c == nil || msg == "" {
		return nil
	}
	type scored struct {
		match    model.RuleMatch
		priority int
	}
	var hits []scored
	for _, r := range c.rules {
		var matched []string
		score := 0.0
		for i, re := range r.triggers {
			if re.MatchString(msg) {
				matched = append(matched, r.words[i])
			}
		}
		if len(matched) > 0 {
			score = triggerBase + triggerStep*float64(len(matched)-1)
		}
		for _, re := range r.patterns {
			if re.MatchString(msg) {
				matched = append(matched, re.String())
				score = max(score, patternHit)
			}
		}
		if len(matched) == 0 {
			continue
		}
		hits = append(hits, scored{
			match: model.RuleMatch{
				Intent:     r.rule.Name,
				Confidence: min(score, maxScore),
				Matched:    matched,
				Response:   r.rule.Response,
			},
			priority: r.rule.Priority,
		})
	}
	if len(hits) == 0 {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].match.Confidence != hits[j].match.Confidence {
			return hits[i].match.Confidence > hits[j].match.Confidence
		}
		return hits[i].priority > hits[j].priority
	})
	best := hits[0].match
	if best.Confidence < c.threshold {
		return nil
	}
	return &best
}
