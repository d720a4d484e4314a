package engine

import "github.com/jim-wyatt/saas-tesa/internal/model"

// Risk scores live on a 0..10 scale. Severity contributes two points per
// level, so a critical signal reaches the cap on its own.
const (
	MaxRiskScore       = 10
	severityWeight     = 2
	exposureIncrement  = 2
	privilegeIncrement = 2
)

// ComputeRiskScore combines the severity weight with the exposure and
// privilege amplifiers, clamped to MaxRiskScore.
func ComputeRiskScore(signal model.ThreatSignal) int {
	score := signal.Severity * severityWeight
	if signal.Metadata.InternetExposed {
		score += exposureIncrement
	}
	if signal.Metadata.PrivilegedAccess {
		score += privilegeIncrement
	}
	return min(max(score, 0), MaxRiskScore)
}
