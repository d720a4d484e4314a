package bandit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

const source = "bandit"

type banditResult struct {
	GeneratedAt string `json:"generated_at"`
	Results     []struct {
		TestID          string `json:"test_id"`
		TestName        string `json:"test_name"`
		Filename        string `json:"filename"`
		LineNumber      int    `json:"line_number"`
		IssueText       string `json:"issue_text"`
		IssueSeverity   string `json:"issue_severity"`
		IssueConfidence string `json:"issue_confidence"`
		IssueCWE        struct {
			ID int `json:"id"`
		} `json:"issue_cwe"`
	} `json:"results"`
}

// Parse converts a bandit JSON report into signals. Findings are stamped
// with the report's generated_at, or detectedAt when the report lacks one.
func Parse(raw string, detectedAt time.Time) ([]model.ThreatSignal, error) {
	var parsed banditResult
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, errors.Wrap(err, "invalid bandit json")
	}
	if ts, err := time.Parse(time.RFC3339, parsed.GeneratedAt); err == nil {
		detectedAt = ts
	}

	signals := []model.ThreatSignal{}
	for _, r := range parsed.Results {
		md := model.Metadata{
			Domain:       "application",
			ResourceUID:  fmt.Sprintf("%s:%d", r.Filename, r.LineNumber),
			ResourceName: r.Filename,
			ResourceType: "source_file",
			Extra: map[string]any{
				"rule_id":    r.TestID,
				"issue_text": r.IssueText,
				"confidence": r.IssueConfidence,
			},
		}
		if r.IssueCWE.ID > 0 {
			md.CWE = []string{fmt.Sprintf("CWE-%d", r.IssueCWE.ID)}
		}
		signals = append(signals, model.ThreatSignal{
			Source:     source,
			SignalType: r.TestName,
			Severity:   mapSeverity(r.IssueSeverity),
			DetectedAt: detectedAt,
			Metadata:   md,
		})
	}
	return signals, nil
}

func mapSeverity(s string) int {
	switch s {
	case "HIGH":
		return 4
	case "MEDIUM":
		return 3
	default:
		return 2
	}
}

// ReportProvider reads a bandit report from disk on every fetch.
type ReportProvider struct {
	Path string
}

func (ReportProvider) Name() string { return source }

func (p ReportProvider) FetchSignals(context.Context) ([]model.ThreatSignal, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "read bandit report %s", p.Path)
	}
	return Parse(string(raw), time.Now().UTC())
}
