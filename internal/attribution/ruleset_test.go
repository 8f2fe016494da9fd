package attribution

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRules = `
default:
  - prefixes: [dm_]
    channel: email
organizations:
  org_42:
    - prefixes: [rally_, dm_x]
      channel: sms
      confidence: 0.85
`

func TestParseRuleSet(t *testing.T) {
	rs, err := ParseRuleSet([]byte(sampleRules))
	require.NoError(t, err)
	require.Len(t, rs.Default, 1)
	require.Contains(t, rs.Organizations, "org_42")

	t.Run("organization rules first", func(t *testing.T) {
		got := rs.Classifier("org_42").Classify(Input{Refcode: "dm_xmas"})
		assert.Equal(t, ChannelSMS, got.Channel)
		assert.Equal(t, 0.85, got.ConfidenceScore)
		assert.Equal(t, "pattern_prefix_dm_x", got.AttributionMethod)
	})

	t.Run("default rules shared by organizations", func(t *testing.T) {
		got := rs.Classifier("org_42").Classify(Input{Refcode: "dm_spring"})
		assert.Equal(t, ChannelEmail, got.Channel)
	})

	t.Run("unknown organization uses default", func(t *testing.T) {
		got := rs.Classifier("org_7").Classify(Input{Refcode: "rally_1"})
		assert.Equal(t, ChannelOther, got.Channel)

		got = rs.Classifier("org_7").Classify(Input{Refcode: "dm_spring"})
		assert.Equal(t, ChannelEmail, got.Channel)
	})
}

func TestParseRuleSet_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown channel": `
default:
  - prefixes: [a]
    channel: tiktok
`,
		"unattributed channel": `
default:
  - prefixes: [a]
    channel: unattributed
`,
		"no prefixes": `
organizations:
  org_1:
    - prefixes: ["  "]
      channel: sms
`,
		"confidence out of range": `
default:
  - prefixes: [a]
    channel: sms
    confidence: 1.5
`,
		"negative confidence": `
default:
  - prefixes: [a]
    channel: sms
    confidence: -0.1
`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRuleSet([]byte(data))
			require.ErrorIs(t, err, ErrInvalidRule)
		})
	}

	_, err := ParseRuleSet([]byte("default: {"))
	require.Error(t, err)
}

func TestParseRuleSet_ZeroConfidenceDefaults(t *testing.T) {
	rs, err := ParseRuleSet([]byte(`
default:
  - prefixes: [dm_]
    channel: email
    confidence: 0
`))
	require.NoError(t, err)
	got := rs.Classifier("org_1").Classify(Input{Refcode: "dm_june"})
	assert.Equal(t, ChannelEmail, got.Channel)
	assert.Equal(t, ScoreHigh, got.ConfidenceScore)
}

func TestLoadRuleSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	rs, err := LoadRuleSet(path)
	require.NoError(t, err)
	assert.Equal(t, ChannelSMS, rs.Classifier("org_42").Classify(Input{Refcode: "rally_a"}).Channel)

	_, err = LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRuleSet_NilUsesBuiltIn(t *testing.T) {
	var rs *RuleSet
	assert.Equal(t, ChannelSMS, rs.Classifier("any").Classify(Input{Refcode: "sms1"}).Channel)
}
