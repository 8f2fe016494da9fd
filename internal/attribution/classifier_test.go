package attribution

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Waterfall(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want Result
	}{
		{
			name: "no signals",
			in:   Input{},
			want: Result{ChannelUnattributed, 0, LevelNone, MethodNoSignals, TierNone},
		},
		{
			name: "click id",
			in:   Input{ClickID: "abc"},
			want: Result{ChannelMeta, 1.0, LevelDeterministic, MethodClickID, TierDeterministic},
		},
		{
			name: "fbclid",
			in:   Input{FBClid: "IwAR0"},
			want: Result{ChannelMeta, 1.0, LevelDeterministic, MethodClickID, TierDeterministic},
		},
		{
			name: "attribution method sms",
			in:   Input{AttributionMethod: "SMS_last_touch"},
			want: Result{ChannelSMS, 1.0, LevelDeterministic, MethodAttributionSMS, TierDeterministic},
		},
		{
			name: "attribution method facebook",
			in:   Input{AttributionMethod: "Facebook_pixel"},
			want: Result{ChannelMeta, 1.0, LevelDeterministic, MethodAttributionMeta, TierDeterministic},
		},
		{
			name: "attribution method email",
			in:   Input{AttributionMethod: "email_click"},
			want: Result{ChannelEmail, 1.0, LevelDeterministic, MethodAttributionEmail, TierDeterministic},
		},
		{
			name: "unrecognized attribution method falls through",
			in:   Input{AttributionMethod: "organic", Refcode: "xyz"},
			want: Result{ChannelOther, 0.5, LevelMedium, MethodRefcodeUnknown, TierMedium},
		},
		{
			name: "meta ids",
			in:   Input{AttributedCreativeID: "cr_1"},
			want: Result{ChannelMeta, 1.0, LevelDeterministic, MethodMetaIDs, TierDeterministic},
		},
		{
			name: "campaign id beats sms refcode",
			in:   Input{AttributedCampaignID: "123", Refcode: "smsXYZ"},
			want: Result{ChannelMeta, 1.0, LevelDeterministic, MethodMetaIDs, TierDeterministic},
		},
		{
			name: "source campaign instagram",
			in:   Input{SourceCampaign: "Spring Instagram push"},
			want: Result{ChannelMeta, 0.9, LevelHigh, MethodSourceCampaignMeta, TierHigh},
		},
		{
			name: "source campaign text",
			in:   Input{SourceCampaign: "TEXT blast"},
			want: Result{ChannelSMS, 0.9, LevelHigh, MethodSourceCampaignSMS, TierHigh},
		},
		{
			name: "source campaign email",
			in:   Input{SourceCampaign: "Weekly Email"},
			want: Result{ChannelEmail, 0.9, LevelHigh, MethodSourceCampaignEmail, TierHigh},
		},
		{
			name: "source campaign beats refcode",
			in:   Input{SourceCampaign: "weekly email", Refcode: "fb_spring"},
			want: Result{ChannelEmail, 0.9, LevelHigh, MethodSourceCampaignEmail, TierHigh},
		},
		{
			name: "unmatched source campaign falls through to refcode",
			in:   Input{SourceCampaign: "gala", Refcode: "fb_spring"},
			want: Result{ChannelMeta, 0.9, LevelHigh, MethodPatternPrefix + "fb_", TierHigh},
		},
		{
			name: "refcode prefix case insensitive",
			in:   Input{Refcode: "SMSTEST"},
			want: Result{ChannelSMS, 0.9, LevelHigh, "pattern_prefix_sms", TierHigh},
		},
		{
			name: "refcode jp",
			in:   Input{Refcode: "jp2024"},
			want: Result{ChannelMeta, 0.9, LevelHigh, "pattern_prefix_jp", TierHigh},
		},
		{
			name: "refcode em shadows email",
			in:   Input{Refcode: "emailblast"},
			want: Result{ChannelEmail, 0.9, LevelHigh, "pattern_prefix_em", TierHigh},
		},
		{
			name: "refcode newsletter",
			in:   Input{Refcode: "newsletter_jan"},
			want: Result{ChannelEmail, 0.9, LevelHigh, "pattern_prefix_newsletter", TierHigh},
		},
		{
			name: "refcode text_",
			in:   Input{Refcode: "text_now"},
			want: Result{ChannelSMS, 0.9, LevelHigh, "pattern_prefix_text_", TierHigh},
		},
		{
			name: "contribution form sms",
			in:   Input{ContributionForm: "sms-donate"},
			want: Result{ChannelSMS, 0.7, LevelMedium, MethodContributionFormSMS, TierMedium},
		},
		{
			name: "contribution form em_",
			in:   Input{ContributionForm: "EM_main"},
			want: Result{ChannelEmail, 0.7, LevelMedium, MethodContributionFormMail, TierMedium},
		},
		{
			name: "contribution form beats unknown refcode",
			in:   Input{ContributionForm: "sms", Refcode: "xyz"},
			want: Result{ChannelSMS, 0.7, LevelMedium, MethodContributionFormSMS, TierMedium},
		},
		{
			name: "unknown refcode",
			in:   Input{Refcode: "xyz123"},
			want: Result{ChannelOther, 0.5, LevelMedium, MethodRefcodeUnknown, TierMedium},
		},
		{
			name: "blank refcode",
			in:   Input{Refcode: "   "},
			want: Result{ChannelUnattributed, 0, LevelNone, MethodNoSignals, TierNone},
		},
		{
			name: "unmatched form and blank refcode",
			in:   Input{ContributionForm: "main", Refcode: "\t"},
			want: Result{ChannelUnattributed, 0, LevelNone, MethodNoSignals, TierNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestClassify_ClickIDDominates(t *testing.T) {
	in := Input{
		ClickID:              "click",
		AttributionMethod:    "sms",
		AttributedCampaignID: "1",
		SourceCampaign:       "email",
		ContributionForm:     "sms",
		Refcode:              "em_x",
	}
	got := Classify(in)
	assert.Equal(t, ChannelMeta, got.Channel)
	assert.Equal(t, 1.0, got.ConfidenceScore)
	assert.Equal(t, TierDeterministic, got.AttributionTier)
}

func TestClassify_Total(t *testing.T) {
	values := []string{"", " ", "sms", "META", "email", "xyz", "em_1"}
	for _, a := range values {
		for _, s := range values {
			for _, f := range values {
				for _, r := range values {
					got := Classify(Input{AttributionMethod: a, SourceCampaign: s, ContributionForm: f, Refcode: r})
					require.True(t, got.Channel.Valid(), "channel %q", got.Channel)
					require.GreaterOrEqual(t, got.ConfidenceScore, 0.0)
					require.LessOrEqual(t, got.ConfidenceScore, 1.0)
					require.Equal(t, LevelForScore(got.ConfidenceScore), got.ConfidenceLevel)
				}
			}
		}
	}
}

func TestClassify_Concurrent(t *testing.T) {
	c := NewClassifier(Rule{Prefixes: []string{"rally_"}, Channel: ChannelSMS})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := c.Classify(Input{Refcode: "rally_fall"})
				if got.Channel != ChannelSMS {
					t.Errorf("got %q", got.Channel)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNewClassifier_OverridesPrepended(t *testing.T) {
	c := NewClassifier(
		Rule{Prefixes: []string{" Emerg "}, Channel: ChannelMeta, Confidence: 0.85},
		Rule{Prefixes: []string{"rally_"}, Channel: ChannelSMS},
	)

	got := c.Classify(Input{Refcode: "EMERGENCY-fund"})
	assert.Equal(t, Result{ChannelMeta, 0.85, LevelHigh, "pattern_prefix_emerg", TierHigh}, got)

	got = c.Classify(Input{Refcode: "rally_1"})
	assert.Equal(t, Result{ChannelSMS, 0.9, LevelHigh, "pattern_prefix_rally_", TierHigh}, got)

	// built-in rules still apply after the overrides
	got = c.Classify(Input{Refcode: "email_x"})
	assert.Equal(t, "pattern_prefix_em", got.AttributionMethod)

	rules := c.Rules()
	require.Len(t, rules, 5)
	assert.Equal(t, []string{"emerg"}, rules[0].Prefixes)
}

func TestDefaultRules_ReturnsCopy(t *testing.T) {
	r := DefaultRules()
	r[0].Prefixes[0] = "zz"
	assert.Equal(t, "jp", DefaultRules()[0].Prefixes[0])
}

func TestLevelForScore(t *testing.T) {
	assert.Equal(t, LevelDeterministic, LevelForScore(1.0))
	assert.Equal(t, LevelHigh, LevelForScore(0.95))
	assert.Equal(t, LevelHigh, LevelForScore(0.85))
	assert.Equal(t, LevelMedium, LevelForScore(0.8))
	assert.Equal(t, LevelMedium, LevelForScore(0.5))
	assert.Equal(t, LevelLow, LevelForScore(0.2))
	assert.Equal(t, LevelNone, LevelForScore(0))
}
