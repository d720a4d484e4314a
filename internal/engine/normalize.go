// Package engine turns raw threat signals into canonical security findings.
// Everything here is a pure function of its input.
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

var titleCaser = cases.Title(language.English)

// Normalize maps one signal to one finding. It never fails; severities
// outside 1..5 must be rejected before the signal gets here.
func Normalize(signal model.ThreatSignal) model.SecurityFinding {
	md := signal.Metadata
	c := classify(signal.Source, signal.SignalType, md.Domain)
	resource := resolveResource(signal, c)

	uid := md.FindingUID
	if uid == "" {
		uid = Fingerprint(signal.Source, signal.SignalType, resource.UID)
	}

	title := titleize(signal.SignalType)
	if title == "" {
		title = c.typeName
	}

	return model.SecurityFinding{
		FindingUID:    uid,
		Standard:      model.StandardOCSF,
		SchemaVersion: model.SchemaVersion,
		Status:        model.StatusOpen,
		SeverityID:    signal.Severity,
		Severity:      model.SeverityLabel(signal.Severity),
		RiskScore:     ComputeRiskScore(signal),
		Title:         title,
		Description:   fmt.Sprintf("%s reported by %s (%s domain)", title, signal.Source, c.domain),
		CategoryName:  c.categoryName,
		ClassName:     model.ClassName,
		TypeName:      c.typeName,
		Domain:        c.domain,
		ActivityName:  model.ActivityCreate,
		Time:          model.CanonicalTime(signal.DetectedAt),
		Source:        signal.Source,
		Resource:      resource,
		References: model.References{
			CVE:         pick(md.CVE, c.refs.cve),
			CWE:         pick(md.CWE, c.refs.cwe),
			OWASP:       pick(md.OWASP, c.refs.owasp),
			MitreAttack: pick(md.MitreAttack, c.refs.mitre),
		},
		RawData: md.Map(),
	}
}

// NormalizeAll maps signals in order.
func NormalizeAll(signals []model.ThreatSignal) []model.SecurityFinding {
	out := make([]model.SecurityFinding, 0, len(signals))
	for _, s := range signals {
		out = append(out, Normalize(s))
	}
	return out
}

// Fingerprint is the stable finding identity for engine-produced findings.
// Detection time is excluded so re-reports merge.
func Fingerprint(source, signalType, resourceUID string) string {
	sum := sha256.Sum256([]byte(source + ":" + signalType + ":" + resourceUID))
	return hex.EncodeToString(sum[:])
}

func resolveResource(signal model.ThreatSignal, c classification) model.Resource {
	md := signal.Metadata
	r := model.Resource{
		UID:      md.ResourceUID,
		Name:     md.ResourceName,
		Type:     md.ResourceType,
		Platform: md.Platform,
	}
	if r.UID == "" {
		r.UID = signal.Source + ":" + signal.SignalType
	}
	if r.Name == "" {
		r.Name = signal.Source
	}
	if r.Type == "" {
		r.Type = c.resourceType
	}
	if r.Platform == "" {
		r.Platform = model.DefaultPlatform
	}
	return r
}

// pick prefers the metadata-supplied list and falls back to the taxonomy
// defaults. The result is never nil.
func pick(fromMetadata, defaults []string) []string {
	if len(fromMetadata) > 0 {
		return append([]string{}, fromMetadata...)
	}
	return append([]string{}, defaults...)
}

func titleize(signalType string) string {
	words := strings.FieldsFunc(signalType, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	return titleCaser.String(strings.Join(words, " "))
}
