// Package attribution assigns donations to the marketing channel that most
// likely produced them, using an ordered waterfall of fixed-confidence rules.
package attribution

// Channel is the marketing channel a transaction is attributed to.
type Channel string

const (
	ChannelMeta         Channel = "meta"
	ChannelSMS          Channel = "sms"
	ChannelEmail        Channel = "email"
	ChannelOther        Channel = "other"
	ChannelUnattributed Channel = "unattributed"
)

// Channels lists every channel in display order.
var Channels = []Channel{ChannelMeta, ChannelSMS, ChannelEmail, ChannelOther, ChannelUnattributed}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	for _, k := range Channels {
		if c == k {
			return true
		}
	}
	return false
}

// ConfidenceLevel is the ordinal band of a confidence score.
type ConfidenceLevel string

const (
	LevelDeterministic ConfidenceLevel = "deterministic"
	LevelHigh          ConfidenceLevel = "high"
	LevelMedium        ConfidenceLevel = "medium"
	LevelLow           ConfidenceLevel = "low"
	LevelNone          ConfidenceLevel = "none"
)

// Fixed scores attached to each waterfall stage.
const (
	ScoreDeterministic = 1.0
	ScoreHigh          = 0.90
	ScoreForm          = 0.70
	ScoreUnknownRef    = 0.50
	ScoreNone          = 0.0
)

// Tiers of the waterfall. TierNone means no rule matched.
const (
	TierNone          = 0
	TierDeterministic = 1
	TierHigh          = 2
	TierMedium        = 3
)

// Method tags naming the rule that fired.
const (
	MethodClickID              = "click_id"
	MethodAttributionSMS       = "attribution_method_sms"
	MethodAttributionMeta      = "attribution_method_meta"
	MethodAttributionEmail     = "attribution_method_email"
	MethodMetaIDs              = "meta_ids_present"
	MethodSourceCampaignMeta   = "source_campaign_meta"
	MethodSourceCampaignSMS    = "source_campaign_sms"
	MethodSourceCampaignEmail  = "source_campaign_email"
	MethodPatternPrefix        = "pattern_prefix_"
	MethodContributionFormSMS  = "contribution_form_sms"
	MethodContributionFormMail = "contribution_form_email"
	MethodRefcodeUnknown       = "refcode_unknown_pattern"
	MethodNoSignals            = "no_attribution_signals"
)

// Input carries the attribution signals of one transaction.
// An empty string means the signal is absent.
type Input struct {
	ClickID              string `json:"click_id,omitempty"`
	FBClid               string `json:"fbclid,omitempty"`
	AttributionMethod    string `json:"attribution_method,omitempty"`
	AttributedCampaignID string `json:"attributed_campaign_id,omitempty"`
	AttributedAdID       string `json:"attributed_ad_id,omitempty"`
	AttributedCreativeID string `json:"attributed_creative_id,omitempty"`
	SourceCampaign       string `json:"source_campaign,omitempty"`
	ContributionForm     string `json:"contribution_form,omitempty"`
	Refcode              string `json:"refcode,omitempty"`
}

// Result is the outcome of classifying one Input.
type Result struct {
	Channel           Channel         `json:"channel"`
	ConfidenceScore   float64         `json:"confidence_score"`
	ConfidenceLevel   ConfidenceLevel `json:"confidence_level"`
	AttributionMethod string          `json:"attribution_method"`
	AttributionTier   int             `json:"attribution_tier"`
}

// LevelForScore bands a confidence score into a ConfidenceLevel.
func LevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= ScoreDeterministic:
		return LevelDeterministic
	case score >= 0.85:
		return LevelHigh
	case score >= 0.5:
		return LevelMedium
	case score > 0:
		return LevelLow
	default:
		return LevelNone
	}
}

func newResult(ch Channel, score float64, method string, tier int) Result {
	return Result{
		Channel:           ch,
		ConfidenceScore:   score,
		ConfidenceLevel:   LevelForScore(score),
		AttributionMethod: method,
		AttributionTier:   tier,
	}
}
