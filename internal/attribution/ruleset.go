package attribution

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRule is returned when a rule file contains an unusable rule.
var ErrInvalidRule = errors.New("invalid attribution rule")

// RuleSet holds refcode overrides loaded from a rule file. Organization
// rules are evaluated before Default, and both before the built-in table.
//
//	default:
//	  - prefixes: [dm_]
//	    channel: email
//	organizations:
//	  org_42:
//	    - prefixes: [rally_]
//	      channel: sms
//	      confidence: 0.85
type RuleSet struct {
	Default       []Rule            `yaml:"default"`
	Organizations map[string][]Rule `yaml:"organizations"`

	once sync.Once
	base *Classifier
	orgs map[string]*Classifier
}

// LoadRuleSet reads and validates a YAML rule file.
func LoadRuleSet(path string) (*RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return ParseRuleSet(b)
}

// ParseRuleSet decodes and validates YAML rule data.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decode rule file: %w", err)
	}
	if err := validateRules("default", rs.Default); err != nil {
		return nil, err
	}
	for org, rules := range rs.Organizations {
		if err := validateRules("organizations."+org, rules); err != nil {
			return nil, err
		}
	}
	out := &RuleSet{Default: rs.Default, Organizations: rs.Organizations}
	out.once.Do(out.build)
	return out, nil
}

func (rs *RuleSet) build() {
	rs.base = NewClassifier(rs.Default...)
	rs.orgs = make(map[string]*Classifier, len(rs.Organizations))
	for org, rules := range rs.Organizations {
		merged := make([]Rule, 0, len(rules)+len(rs.Default))
		merged = append(merged, rules...)
		merged = append(merged, rs.Default...)
		rs.orgs[org] = NewClassifier(merged...)
	}
}

// Classifier returns the classifier for an organization. Unknown
// organizations, and a nil RuleSet, fall back to the shared rules.
func (rs *RuleSet) Classifier(orgID string) *Classifier {
	if rs == nil {
		return defaultClassifier
	}
	rs.once.Do(rs.build)
	if c, ok := rs.orgs[orgID]; ok {
		return c
	}
	return rs.base
}

func validateRules(scope string, rules []Rule) error {
	for i, r := range rules {
		if !r.Channel.Valid() || r.Channel == ChannelUnattributed {
			return fmt.Errorf("%w: %s[%d]: unknown channel %q", ErrInvalidRule, scope, i, r.Channel)
		}
		nonEmpty := false
		for _, p := range r.Prefixes {
			if strings.TrimSpace(p) != "" {
				nonEmpty = true
				break
			}
		}
		if !nonEmpty {
			return fmt.Errorf("%w: %s[%d]: at least one prefix required", ErrInvalidRule, scope, i)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return fmt.Errorf("%w: %s[%d]: confidence must be within [0,1], 0 means default", ErrInvalidRule, scope, i)
		}
	}
	return nil
}
