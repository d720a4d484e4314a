package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadataRecognizedKeys(t *testing.T) {
	md := ParseMetadata(map[string]any{
		"domain":            " Identity ",
		"internet_exposed":  "true",
		"privileged_access": true,
		"cwe":               []any{"CWE-798"},
		"owasp":             "A07:2021",
		"resource_uid":      "user/alice",
		"team":              "platform",
	})

	assert.Equal(t, "identity", md.Domain)
	assert.True(t, md.InternetExposed)
	assert.True(t, md.PrivilegedAccess)
	assert.Equal(t, []string{"CWE-798"}, md.CWE)
	assert.Equal(t, []string{"A07:2021"}, md.OWASP)
	assert.Equal(t, "user/alice", md.ResourceUID)
	assert.Equal(t, map[string]any{"team": "platform"}, md.Extra)
}

func TestParseMetadataBadTypesFallBackToDefaults(t *testing.T) {
	md := ParseMetadata(map[string]any{
		"internet_exposed":  "sometimes",
		"privileged_access": []any{true},
		"cwe":               []any{89},
		"domain":            42,
	})

	assert.False(t, md.InternetExposed)
	assert.False(t, md.PrivilegedAccess)
	assert.Nil(t, md.CWE)
	assert.Empty(t, md.Domain)
	assert.Len(t, md.Extra, 4)
}

func TestMetadataMapIsVerbatimAfterParse(t *testing.T) {
	in := map[string]any{"internet_exposed": "yes-ish", "x": 1.5}
	md := ParseMetadata(in)
	out := md.Map()
	assert.Equal(t, in, out)

	out["x"] = 2.0
	assert.Equal(t, 1.5, md.Map()["x"])
}

func TestMetadataMapFromFields(t *testing.T) {
	md := Metadata{
		PrivilegedAccess: true,
		CWE:              []string{"CWE-250"},
		ResourceUID:      "c1",
		Extra:            map[string]any{"image": "nginx"},
	}
	assert.Equal(t, map[string]any{
		"privileged_access": true,
		"cwe":               []any{"CWE-250"},
		"resource_uid":      "c1",
		"image":             "nginx",
	}, md.Map())
}

func TestThreatSignalJSON(t *testing.T) {
	raw := `{"source":"iam","signal_type":"stale_admin_credential","severity":5,
		"detected_at":"2026-01-01T00:00:00Z","metadata":{"privileged_access":true}}`

	var s ThreatSignal
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, 5, s.Severity)
	assert.True(t, s.Metadata.PrivilegedAccess)

	var missing ThreatSignal
	require.NoError(t, json.Unmarshal([]byte(`{"source":"iam","metadata":null}`), &missing))
	assert.NotNil(t, missing.Metadata.Map())
}

func TestSeverityLabel(t *testing.T) {
	assert.Equal(t, SeverityInformational, SeverityLabel(1))
	assert.Equal(t, SeverityCritical, SeverityLabel(5))
	assert.Equal(t, Severity(""), SeverityLabel(9))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]SecurityFinding{{SeverityID: 1}, {SeverityID: 2}, {SeverityID: 5}, {SeverityID: 5}})
	assert.Equal(t, Summary{Low: 1, Critical: 2}, s)
	assert.Equal(t, 3, s.Total())
}

func TestCloneSharesNothing(t *testing.T) {
	f := SecurityFinding{
		References: References{CWE: []string{"CWE-1"}},
		RawData:    map[string]any{"k": "v"},
	}
	c := f.Clone()
	c.References.CWE[0] = "CWE-2"
	c.RawData["k"] = "w"

	assert.Equal(t, "CWE-1", f.References.CWE[0])
	assert.Equal(t, "v", f.RawData["k"])
	assert.NotNil(t, c.References.CVE)
}
