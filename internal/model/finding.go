package model

import (
	"maps"
	"slices"
	"time"
)

type Severity string

const (
	SeverityCritical      Severity = "critical"
	SeverityHigh          Severity = "high"
	SeverityMedium        Severity = "medium"
	SeverityLow           Severity = "low"
	SeverityInformational Severity = "informational"
)

const (
	StandardOCSF    = "OCSF"
	SchemaVersion   = "1.1.0"
	ClassName       = "Security Finding"
	ActivityCreate  = "Create"
	MinSeverityID   = 1
	MaxSeverityID   = 5
	DefaultPlatform = "saas"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

var severityLabels = map[int]Severity{
	1: SeverityInformational,
	2: SeverityLow,
	3: SeverityMedium,
	4: SeverityHigh,
	5: SeverityCritical,
}

// SeverityLabel returns the fixed label for a severity id. Ids outside 1..5
// have no label and yield the empty string.
func SeverityLabel(severityID int) Severity {
	return severityLabels[severityID]
}

type Resource struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Platform string `json:"platform"`
}

type References struct {
	CVE         []string `json:"cve"`
	CWE         []string `json:"cwe"`
	OWASP       []string `json:"owasp"`
	MitreAttack []string `json:"mitre_attack"`
}

// SecurityFinding is the canonical OCSF-shaped record. It is treated as an
// immutable value: stores copy it in and out.
type SecurityFinding struct {
	FindingUID    string         `json:"finding_uid" validate:"required,max=128"`
	Standard      string         `json:"standard" validate:"required"`
	SchemaVersion string         `json:"schema_version" validate:"required"`
	Status        Status         `json:"status" validate:"oneof=open in_progress resolved"`
	SeverityID    int            `json:"severity_id" validate:"min=1,max=5"`
	Severity      Severity       `json:"severity" validate:"required"`
	RiskScore     int            `json:"risk_score" validate:"min=0"`
	Title         string         `json:"title" validate:"required"`
	Description   string         `json:"description"`
	CategoryName  string         `json:"category_name"`
	ClassName     string         `json:"class_name"`
	TypeName      string         `json:"type_name"`
	Domain        string         `json:"domain"`
	ActivityName  string         `json:"activity_name"`
	Time          time.Time      `json:"time" validate:"required"`
	Source        string         `json:"source" validate:"required"`
	Resource      Resource       `json:"resource"`
	References    References     `json:"references"`
	RawData       map[string]any `json:"raw_data"`
}

// CanonicalTime is the form finding times are stored in: UTC at
// microsecond precision, matching postgres timestamptz.
func CanonicalTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Clone returns a copy that shares no slices or maps with f.
func (f SecurityFinding) Clone() SecurityFinding {
	out := f
	out.References = References{
		CVE:         cloneList(f.References.CVE),
		CWE:         cloneList(f.References.CWE),
		OWASP:       cloneList(f.References.OWASP),
		MitreAttack: cloneList(f.References.MitreAttack),
	}
	out.RawData = maps.Clone(f.RawData)
	if out.RawData == nil {
		out.RawData = map[string]any{}
	}
	return out
}

func cloneList(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
