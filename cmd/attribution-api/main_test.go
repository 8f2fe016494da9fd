package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/attribution/internal/attribution"
)

const inputLines = `{"refcode":"SMSTEST","amount":20}

{"click_id":"abc","amount":50}
{"refcode":"   "}
{"refcode":"rally_7","amount":5}
`

func TestRunClassify(t *testing.T) {
	var out bytes.Buffer
	summary, err := runClassify(strings.NewReader(inputLines), &out, attribution.NewClassifier())
	require.NoError(t, err)

	dec := json.NewDecoder(&out)
	var got []attribution.Channel
	for dec.More() {
		var r attribution.Result
		require.NoError(t, dec.Decode(&r))
		got = append(got, r.Channel)
	}
	assert.Equal(t, []attribution.Channel{
		attribution.ChannelSMS, attribution.ChannelMeta, attribution.ChannelUnattributed, attribution.ChannelOther,
	}, got)
	assert.Equal(t, int64(4), summary.TotalCount)
	assert.Equal(t, 75.0, summary.TotalRevenue)
}

func TestRunClassify_BadLine(t *testing.T) {
	_, err := runClassify(strings.NewReader("{\"refcode\":\"a\"}\nnot json\n"), &bytes.Buffer{}, attribution.NewClassifier())
	require.ErrorContains(t, err, "line 2")
}

func TestClassifyCmd(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("organizations:\n  org_1:\n    - prefixes: [rally_]\n      channel: sms\n"), 0o600))
	input := filepath.Join(dir, "in.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(inputLines), 0o600))

	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"classify", "--rules", rules, "--org", "org_1", input})
	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[3], `"attribution_method":"pattern_prefix_rally_"`)
	assert.Contains(t, stderr.String(), "total=4")
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug")
	require.NoError(t, err)
	_, err = newLogger("loud")
	require.Error(t, err)
}
