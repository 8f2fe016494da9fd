package attribution

import "strings"

// Rule maps refcode prefixes to a channel. Rules are evaluated in order
// and the first prefix that matches wins.
type Rule struct {
	Prefixes   []string `yaml:"prefixes" json:"prefixes"`
	Channel    Channel  `yaml:"channel" json:"channel"`
	Confidence float64  `yaml:"confidence,omitempty" json:"confidence,omitempty"`
}

// Order matters: "em" shadows "email" and must stay ahead of it.
var defaultRules = []Rule{
	{Prefixes: []string{"jp", "th", "meta_", "fb_", "ig_", "facebook_", "instagram_"}, Channel: ChannelMeta, Confidence: ScoreHigh},
	{Prefixes: []string{"txt", "sms", "text_"}, Channel: ChannelSMS, Confidence: ScoreHigh},
	{Prefixes: []string{"em", "email", "mail_", "newsletter"}, Channel: ChannelEmail, Confidence: ScoreHigh},
}

// DefaultRules returns a copy of the built-in refcode prefix table.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	for i, r := range defaultRules {
		out[i] = Rule{Prefixes: append([]string(nil), r.Prefixes...), Channel: r.Channel, Confidence: r.Confidence}
	}
	return out
}

// Classifier runs the attribution waterfall against a refcode rule table.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a Classifier whose refcode table is overrides
// followed by the built-in rules.
func NewClassifier(overrides ...Rule) *Classifier {
	rules := make([]Rule, 0, len(overrides)+len(defaultRules))
	for _, r := range overrides {
		rules = append(rules, normalizeRule(r))
	}
	rules = append(rules, DefaultRules()...)
	return &Classifier{rules: rules}
}

// Rules returns the effective rule table in evaluation order.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

var defaultClassifier = NewClassifier()

// Classify runs the built-in waterfall.
func Classify(in Input) Result {
	return defaultClassifier.Classify(in)
}

// Classify assigns in to exactly one channel. The first matching stage wins.
func (c *Classifier) Classify(in Input) Result {
	// Tier 1: deterministic signals.
	if in.ClickID != "" || in.FBClid != "" {
		return newResult(ChannelMeta, ScoreDeterministic, MethodClickID, TierDeterministic)
	}
	if in.AttributionMethod != "" {
		m := strings.ToLower(in.AttributionMethod)
		switch {
		case strings.Contains(m, "sms"):
			return newResult(ChannelSMS, ScoreDeterministic, MethodAttributionSMS, TierDeterministic)
		case strings.Contains(m, "meta"), strings.Contains(m, "facebook"):
			return newResult(ChannelMeta, ScoreDeterministic, MethodAttributionMeta, TierDeterministic)
		case strings.Contains(m, "email"):
			return newResult(ChannelEmail, ScoreDeterministic, MethodAttributionEmail, TierDeterministic)
		}
	}
	if in.AttributedCampaignID != "" || in.AttributedAdID != "" || in.AttributedCreativeID != "" {
		return newResult(ChannelMeta, ScoreDeterministic, MethodMetaIDs, TierDeterministic)
	}

	// Tier 2: campaign labels and refcode prefixes.
	if in.SourceCampaign != "" {
		s := strings.ToLower(in.SourceCampaign)
		switch {
		case containsAny(s, "meta", "facebook", "instagram"):
			return newResult(ChannelMeta, ScoreHigh, MethodSourceCampaignMeta, TierHigh)
		case containsAny(s, "sms", "text"):
			return newResult(ChannelSMS, ScoreHigh, MethodSourceCampaignSMS, TierHigh)
		case strings.Contains(s, "email"):
			return newResult(ChannelEmail, ScoreHigh, MethodSourceCampaignEmail, TierHigh)
		}
	}
	refcode := strings.ToLower(strings.TrimSpace(in.Refcode))
	if refcode != "" {
		if r, prefix, ok := c.matchRefcode(refcode); ok {
			return newResult(r.Channel, r.Confidence, MethodPatternPrefix+prefix, TierHigh)
		}
	}

	// Tier 3: form names and unknown refcodes.
	if in.ContributionForm != "" {
		f := strings.ToLower(in.ContributionForm)
		switch {
		case strings.Contains(f, "sms"):
			return newResult(ChannelSMS, ScoreForm, MethodContributionFormSMS, TierMedium)
		case containsAny(f, "email", "em_"):
			return newResult(ChannelEmail, ScoreForm, MethodContributionFormMail, TierMedium)
		}
	}
	if refcode != "" {
		return newResult(ChannelOther, ScoreUnknownRef, MethodRefcodeUnknown, TierMedium)
	}

	return newResult(ChannelUnattributed, ScoreNone, MethodNoSignals, TierNone)
}

// matchRefcode expects a lowercased, trimmed refcode.
func (c *Classifier) matchRefcode(refcode string) (Rule, string, bool) {
	for _, r := range c.rules {
		for _, p := range r.Prefixes {
			if strings.HasPrefix(refcode, p) {
				return r, p, true
			}
		}
	}
	return Rule{}, "", false
}

func normalizeRule(r Rule) Rule {
	out := Rule{Channel: r.Channel, Confidence: r.Confidence}
	if out.Confidence == 0 {
		out.Confidence = ScoreHigh
	}
	for _, p := range r.Prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out.Prefixes = append(out.Prefixes, p)
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
