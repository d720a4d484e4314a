package engine

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

func signal(source, signalType string, severity int, md model.Metadata) model.ThreatSignal {
	return model.ThreatSignal{
		Source:     source,
		SignalType: signalType,
		Severity:   severity,
		DetectedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Metadata:   md,
	}
}

func TestComputeRiskScoreCapsAtMax(t *testing.T) {
	s := signal("iam", "overprivileged_token", 5, model.Metadata{InternetExposed: true, PrivilegedAccess: true})
	assert.Equal(t, MaxRiskScore, ComputeRiskScore(s))
}

func TestComputeRiskScore(t *testing.T) {
	tests := []struct {
		name     string
		severity int
		md       model.Metadata
		want     int
	}{
		{"informational bare", 1, model.Metadata{}, 2},
		{"medium bare", 3, model.Metadata{}, 6},
		{"medium exposed", 3, model.Metadata{InternetExposed: true}, 8},
		{"high privileged", 4, model.Metadata{PrivilegedAccess: true}, 10},
		{"low both", 2, model.Metadata{InternetExposed: true, PrivilegedAccess: true}, 8},
		{"critical bare", 5, model.Metadata{}, 10},
		{"critical privileged", 5, model.Metadata{PrivilegedAccess: true}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRiskScore(signal("x", "y", tt.severity, tt.md))
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, MaxRiskScore)
		})
	}
}

func TestNormalizeStaleAdminCredential(t *testing.T) {
	f := Normalize(signal("iam", "stale_admin_credential", 5, model.Metadata{PrivilegedAccess: true}))

	assert.Equal(t, model.StandardOCSF, f.Standard)
	assert.Equal(t, model.SchemaVersion, f.SchemaVersion)
	assert.Equal(t, model.StatusOpen, f.Status)
	assert.Equal(t, 5, f.SeverityID)
	assert.Equal(t, model.SeverityCritical, f.Severity)
	assert.Equal(t, MaxRiskScore, f.RiskScore)
	assert.Equal(t, DomainIdentity, f.Domain)
	assert.Equal(t, "Identity Security", f.CategoryName)
	assert.Equal(t, "Stale Admin Credential", f.TypeName)
	assert.Equal(t, "Stale Admin Credential", f.Title)
	assert.Equal(t, model.ClassName, f.ClassName)
	assert.Equal(t, model.ActivityCreate, f.ActivityName)
	assert.Equal(t, "iam", f.Source)
	assert.Equal(t, []string{"T1078"}, f.References.MitreAttack)
	assert.Equal(t, true, f.RawData[model.KeyPrivilegedAccess])
}

func TestNormalizeSeverityLabels(t *testing.T) {
	want := map[int]model.Severity{
		1: model.SeverityInformational,
		2: model.SeverityLow,
		3: model.SeverityMedium,
		4: model.SeverityHigh,
		5: model.SeverityCritical,
	}
	for id, label := range want {
		f := Normalize(signal("a", "b", id, model.Metadata{}))
		assert.Equal(t, id, f.SeverityID)
		assert.Equal(t, label, f.Severity)
	}
}

func TestNormalizeMetadataDomainOverridesInference(t *testing.T) {
	md := model.ParseMetadata(map[string]any{
		"domain": "application",
		"cwe":    []any{"CWE-89"},
		"owasp":  []any{"A03:2021"},
	})
	f := Normalize(signal("sast", "sql_injection", 4, md))

	assert.Equal(t, DomainApplication, f.Domain)
	assert.Greater(t, f.RiskScore, 0)
	assert.Contains(t, f.References.CWE, "CWE-89")

	// iam would normally classify as identity
	f = Normalize(signal("iam", "stale_admin_credential", 3, model.Metadata{Domain: DomainCloud}))
	assert.Equal(t, DomainCloud, f.Domain)
	assert.Equal(t, "Cloud Security", f.CategoryName)
	assert.Equal(t, "cloud_resource", f.Resource.Type)
	// The matched rule still names the condition.
	assert.Equal(t, "Stale Admin Credential", f.TypeName)
	assert.Equal(t, []string{"CWE-798"}, f.References.CWE)
	assert.Equal(t, []string{"T1078"}, f.References.MitreAttack)
}

func TestNormalizeStoresCanonicalTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 14, 0, 0, 999999999, time.FixedZone("CET", 60*60))
	f := Normalize(signal("iam", "mfa_disabled", 3, model.Metadata{}))
	assert.Equal(t, time.UTC, f.Time.Location())

	s := signal("iam", "mfa_disabled", 3, model.Metadata{})
	s.DetectedAt = at
	f = Normalize(s)
	assert.Equal(t, time.Date(2026, 3, 1, 13, 0, 0, 999999000, time.UTC), f.Time)
}

func TestNormalizeUnrecognizedMetadataDomainIsIgnored(t *testing.T) {
	f := Normalize(signal("iam", "stale_admin_credential", 3, model.Metadata{Domain: "martian"}))
	assert.Equal(t, DomainIdentity, f.Domain)
}

func TestNormalizeFallsBackToOther(t *testing.T) {
	f := Normalize(signal("siem", "odd_beacon", 2, model.Metadata{}))
	assert.Equal(t, DomainOther, f.Domain)
	assert.Equal(t, "Security Operations", f.CategoryName)
	assert.Equal(t, "Odd Beacon", f.TypeName)
	assert.Equal(t, "asset", f.Resource.Type)
	assert.Empty(t, f.References.CVE)
	assert.NotNil(t, f.References.CVE)
}

func TestNormalizeSourceTable(t *testing.T) {
	f := Normalize(signal("k8s", "host_path_mount", 3, model.Metadata{}))
	assert.Equal(t, DomainContainer, f.Domain)
	assert.Equal(t, "container", f.Resource.Type)
}

func TestNormalizeReferencesDefaultsAndPrecedence(t *testing.T) {
	f := Normalize(signal("dast", "blind_sql_injection", 4, model.Metadata{}))
	assert.Equal(t, []string{"CWE-89"}, f.References.CWE)
	assert.Equal(t, []string{"A03:2021"}, f.References.OWASP)
	assert.Equal(t, []string{"T1190"}, f.References.MitreAttack)

	f = Normalize(signal("dast", "blind_sql_injection", 4, model.Metadata{
		CWE: []string{"CWE-564"},
		CVE: []string{"CVE-2024-0001"},
	}))
	assert.Equal(t, []string{"CWE-564"}, f.References.CWE)
	assert.Equal(t, []string{"CVE-2024-0001"}, f.References.CVE)
	assert.Equal(t, []string{"A03:2021"}, f.References.OWASP)
}

func TestNormalizeResourceHints(t *testing.T) {
	f := Normalize(signal("cspm", "public_bucket", 4, model.Metadata{
		ResourceUID:  "bucket-1",
		ResourceName: "logs-bucket",
		Platform:     "aws",
	}))
	assert.Equal(t, model.Resource{UID: "bucket-1", Name: "logs-bucket", Type: "compute", Platform: "aws"}, f.Resource)
	assert.Equal(t, Fingerprint("cspm", "public_bucket", "bucket-1"), f.FindingUID)

	f = Normalize(signal("cspm", "public_bucket", 4, model.Metadata{}))
	assert.Equal(t, "cspm:public_bucket", f.Resource.UID)
	assert.Equal(t, model.DefaultPlatform, f.Resource.Platform)
}

func TestNormalizeFindingUIDStableAcrossDetections(t *testing.T) {
	a := signal("iam", "stale_admin_credential", 5, model.Metadata{})
	b := a
	b.DetectedAt = a.DetectedAt.Add(time.Hour)

	assert.Equal(t, Normalize(a).FindingUID, Normalize(b).FindingUID)

	c := signal("iam", "stale_admin_credential", 5, model.Metadata{FindingUID: "explicit-1"})
	assert.Equal(t, "explicit-1", Normalize(c).FindingUID)
}

func TestNormalizeAllPreservesOrder(t *testing.T) {
	findings := NormalizeAll([]model.ThreatSignal{
		signal("a", "s1", 1, model.Metadata{}),
		signal("b", "s2", 3, model.Metadata{InternetExposed: true}),
		signal("c", "s3", 5, model.Metadata{PrivilegedAccess: true}),
	})
	require.Len(t, findings, 3)
	assert.Equal(t, "a", findings[0].Source)
	assert.Equal(t, "c", findings[2].Source)

	summary := model.Summarize(findings)
	assert.Equal(t, 0, summary.Low)
	assert.Equal(t, 1, summary.Medium)
	assert.Equal(t, 1, summary.Critical)
}

func TestFingerprintStability(t *testing.T) {
	a := Fingerprint("bandit", "B101", "a.py:1")
	b := Fingerprint("bandit", "B101", "a.py:1")
	if a != b {
		t.Fatal("fingerprint not deterministic")
	}
}

func TestFingerprintDifferenceOnInput(t *testing.T) {
	a := Fingerprint("bandit", "B101", "a.py:1")
	if a == Fingerprint("bandit", "B102", "a.py:1") {
		t.Fatal("fingerprint not sensitive to signal type change")
	}
	if a == Fingerprint("semgrep", "B101", "a.py:1") {
		t.Fatal("fingerprint not sensitive to source change")
	}
	if a == Fingerprint("bandit", "B101", "a.py:2") {
		t.Fatal("fingerprint not sensitive to resource change")
	}
}

func TestFingerprintFormat(t *testing.T) {
	f := Fingerprint("bandit", "B101", "test.py:1")
	if len(f) != 64 {
		t.Fatalf("expected 64-char SHA256, got %d", len(f))
	}
	if _, err := hex.DecodeString(f); err != nil {
		t.Fatalf("fingerprint not valid hex: %v", err)
	}
}
