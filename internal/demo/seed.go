// Package demo generates canonical findings for dashboard demos.
package demo

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/jim-wyatt/saas-tesa/internal/engine"
	"github.com/jim-wyatt/saas-tesa/internal/model"
)

var domainTypes = map[string][]string{
	engine.DomainApplication:    {"SQL Injection", "Dependency Vulnerability", "Secrets Exposure"},
	engine.DomainInfrastructure: {"Public Storage", "Open Security Group", "Unencrypted Volume"},
	engine.DomainIdentity:       {"Stale Admin Credential", "MFA Disabled", "Excessive Privilege"},
	engine.DomainCloud:          {"Misconfigured IAM Policy", "Logging Disabled", "Weak KMS Policy"},
	engine.DomainContainer:      {"Privileged Container", "Outdated Base Image", "Unscanned Image"},
}

// domainOrder keeps generation reproducible for a given seed.
var domainOrder = []string{
	engine.DomainApplication,
	engine.DomainInfrastructure,
	engine.DomainIdentity,
	engine.DomainCloud,
	engine.DomainContainer,
}

var (
	sources   = []string{"sast", "dast", "sca", "iam", "cspm", "k8s", "edr", "siem"}
	statuses  = []model.Status{model.StatusOpen, model.StatusOpen, model.StatusOpen, model.StatusInProgress, model.StatusResolved}
	platforms = []string{"aws", "gcp", "azure", "saas"}
	owners    = []string{"platform", "appsec", "sre", "infra"}
)

// severityWeights maps severity ids 2..5 to relative frequencies.
var severityWeights = []struct{ id, weight int }{
	{2, 20}, {3, 40}, {4, 30}, {5, 10},
}

type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Findings returns count findings (at least one) observed within the last
// days days.
func (g *Generator) Findings(count, days int) []model.SecurityFinding {
	count = max(count, 1)
	days = max(days, 1)
	now := g.now()

	out := make([]model.SecurityFinding, 0, count)
	for range count {
		domain := domainOrder[g.rng.IntN(len(domainOrder))]
		typeName := pickOne(g.rng, domainTypes[domain])
		severityID := g.severity()
		category, resourceType := engine.DomainProfile(domain)
		observed := now.Add(-(time.Duration(g.rng.IntN(days))*24*time.Hour +
			time.Duration(g.rng.IntN(24))*time.Hour +
			time.Duration(g.rng.IntN(60))*time.Minute))

		refs := model.References{CVE: []string{}, CWE: []string{}, OWASP: []string{}, MitreAttack: []string{}}
		if g.rng.Float64() > 0.7 {
			refs.CVE = []string{"CVE-2024-12345"}
		}
		if domain == engine.DomainApplication {
			refs.CWE = []string{"CWE-79"}
			refs.OWASP = []string{"A05:2021"}
		}
		if g.rng.Float64() > 0.6 {
			refs.MitreAttack = []string{"T1190"}
		}

		out = append(out, model.SecurityFinding{
			FindingUID:    uuid.NewString(),
			Standard:      model.StandardOCSF,
			SchemaVersion: model.SchemaVersion,
			Status:        pickOne(g.rng, statuses),
			SeverityID:    severityID,
			Severity:      model.SeverityLabel(severityID),
			RiskScore:     min(engine.MaxRiskScore, 2*severityID+2*g.rng.IntN(2)),
			Title:         fmt.Sprintf("%s detected in %s stack", typeName, domain),
			Description:   fmt.Sprintf("%s indicates elevated %s exposure and requires triage.", typeName, domain),
			CategoryName:  category,
			ClassName:     model.ClassName,
			TypeName:      typeName,
			Domain:        domain,
			ActivityName:  model.ActivityCreate,
			Time:          observed,
			Source:        pickOne(g.rng, sources),
			Resource: model.Resource{
				UID:      fmt.Sprintf("asset-%d", 1000+g.rng.IntN(9000)),
				Name:     fmt.Sprintf("%s-service-%d", domain, 1+g.rng.IntN(50)),
				Type:     resourceType,
				Platform: pickOne(g.rng, platforms),
			},
			References: refs,
			RawData: map[string]any{
				"generated": true,
				"demo":      true,
				"owner":     pickOne(g.rng, owners),
			},
		})
	}
	return out
}

func (g *Generator) severity() int {
	total := 0
	for _, w := range severityWeights {
		total += w.weight
	}
	n := g.rng.IntN(total)
	for _, w := range severityWeights {
		if n < w.weight {
			return w.id
		}
		n -= w.weight
	}
	return severityWeights[len(severityWeights)-1].id
}

func pickOne[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}
