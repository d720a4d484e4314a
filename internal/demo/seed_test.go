package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jim-wyatt/saas-tesa/internal/engine"
	"github.com/jim-wyatt/saas-tesa/internal/model"
	"github.com/jim-wyatt/saas-tesa/internal/security"
)

func TestFindingsAreValidCanonicalRecords(t *testing.T) {
	g := NewGenerator(42)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	findings := g.Findings(500, 7)
	require.Len(t, findings, 500)
	require.NoError(t, security.ValidateFindings(findings))

	uids := map[string]bool{}
	for _, f := range findings {
		assert.False(t, uids[f.FindingUID], "duplicate uid")
		uids[f.FindingUID] = true

		assert.GreaterOrEqual(t, f.SeverityID, 2)
		assert.LessOrEqual(t, f.RiskScore, engine.MaxRiskScore)
		assert.False(t, f.Time.After(now))
		assert.True(t, f.Time.After(now.Add(-7*24*time.Hour)))
		assert.Contains(t, domainTypes[f.Domain], f.TypeName)
	}

	s := model.Summarize(findings)
	assert.Equal(t, 500, s.Total())
	assert.Greater(t, s.Medium, s.Critical)
}

func TestFindingsAtLeastOne(t *testing.T) {
	assert.Len(t, NewGenerator(1).Findings(0, 0), 1)
}
