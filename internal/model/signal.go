package model

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"
	"time"
)

// ThreatSignal is a raw observation reported by a security tool.
type ThreatSignal struct {
	Source     string    `json:"source" validate:"required,max=128"`
	SignalType string    `json:"signal_type" validate:"required,max=128"`
	Severity   int       `json:"severity" validate:"min=1,max=5"`
	DetectedAt time.Time `json:"detected_at" validate:"required"`
	Metadata   Metadata  `json:"metadata"`
}

// Metadata keys the engine understands. Everything else is carried in
// Metadata.Extra untouched.
const (
	KeyDomain           = "domain"
	KeyInternetExposed  = "internet_exposed"
	KeyPrivilegedAccess = "privileged_access"
	KeyCVE              = "cve"
	KeyCWE              = "cwe"
	KeyOWASP            = "owasp"
	KeyMitreAttack      = "mitre_attack"
	KeyFindingUID       = "finding_uid"
	KeyResourceUID      = "resource_uid"
	KeyResourceName     = "resource_name"
	KeyResourceType     = "resource_type"
	KeyPlatform         = "platform"
)

// Metadata is the typed view over a signal's open metadata mapping.
type Metadata struct {
	Domain           string
	InternetExposed  bool
	PrivilegedAccess bool
	CVE              []string
	CWE              []string
	OWASP            []string
	MitreAttack      []string
	FindingUID       string
	ResourceUID      string
	ResourceName     string
	ResourceType     string
	Platform         string

	// Extra holds unrecognized keys and recognized keys whose value had an
	// unusable type.
	Extra map[string]any

	raw map[string]any
}

// ParseMetadata reads the recognized keys out of m with defaults. m itself
// is retained (copied) as the verbatim form returned by Map.
func ParseMetadata(m map[string]any) Metadata {
	md := Metadata{raw: maps.Clone(m)}
	for k, v := range m {
		ok := true
		switch k {
		case KeyDomain:
			md.Domain, ok = asString(v)
			md.Domain = strings.ToLower(strings.TrimSpace(md.Domain))
		case KeyInternetExposed:
			md.InternetExposed, ok = asBool(v)
		case KeyPrivilegedAccess:
			md.PrivilegedAccess, ok = asBool(v)
		case KeyCVE:
			md.CVE, ok = asStrings(v)
		case KeyCWE:
			md.CWE, ok = asStrings(v)
		case KeyOWASP:
			md.OWASP, ok = asStrings(v)
		case KeyMitreAttack:
			md.MitreAttack, ok = asStrings(v)
		case KeyFindingUID:
			md.FindingUID, ok = asString(v)
		case KeyResourceUID:
			md.ResourceUID, ok = asString(v)
		case KeyResourceName:
			md.ResourceName, ok = asString(v)
		case KeyResourceType:
			md.ResourceType, ok = asString(v)
		case KeyPlatform:
			md.Platform, ok = asString(v)
		default:
			ok = false
		}
		if !ok {
			if md.Extra == nil {
				md.Extra = map[string]any{}
			}
			md.Extra[k] = v
		}
	}
	return md
}

// Map returns the metadata as an open mapping. Metadata produced by
// ParseMetadata returns its input verbatim; metadata built in code is
// flattened from its fields.
func (m Metadata) Map() map[string]any {
	if m.raw != nil {
		return maps.Clone(m.raw)
	}
	out := map[string]any{}
	putString := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	// Lists are emitted as []any, the shape they decode back to from JSON.
	putList := func(k string, v []string) {
		if len(v) > 0 {
			items := make([]any, 0, len(v))
			for _, s := range v {
				items = append(items, s)
			}
			out[k] = items
		}
	}
	putString(KeyDomain, m.Domain)
	if m.InternetExposed {
		out[KeyInternetExposed] = true
	}
	if m.PrivilegedAccess {
		out[KeyPrivilegedAccess] = true
	}
	putList(KeyCVE, m.CVE)
	putList(KeyCWE, m.CWE)
	putList(KeyOWASP, m.OWASP)
	putList(KeyMitreAttack, m.MitreAttack)
	putString(KeyFindingUID, m.FindingUID)
	putString(KeyResourceUID, m.ResourceUID)
	putString(KeyResourceName, m.ResourceName)
	putString(KeyResourceType, m.ResourceType)
	putString(KeyPlatform, m.Platform)
	for k, v := range m.Extra {
		out[k] = v
	}
	return out
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	*m = ParseMetadata(raw)
	return nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	case nil:
		return false, true
	}
	return false, false
}

func asStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		if t == "" {
			return nil, true
		}
		return []string{t}, true
	case nil:
		return nil, true
	}
	return nil, false
}
