package engine

import "strings"

const (
	DomainApplication    = "application"
	DomainInfrastructure = "infrastructure"
	DomainIdentity       = "identity"
	DomainCloud          = "cloud"
	DomainContainer      = "container"
	DomainOther          = "other"
)

type domainProfile struct {
	category     string
	resourceType string
}

var domains = map[string]domainProfile{
	DomainApplication:    {"Application Security", "service"},
	DomainInfrastructure: {"Infrastructure Security", "compute"},
	DomainIdentity:       {"Identity Security", "identity"},
	DomainCloud:          {"Cloud Security", "cloud_resource"},
	DomainContainer:      {"Container Security", "container"},
	DomainOther:          {"Security Operations", "asset"},
}

// rule is one taxonomy entry. An empty typeName means the title-cased
// signal type is used.
type rule struct {
	domain   string
	typeName string
	refs     refDefaults
}

type refDefaults struct {
	cve, cwe, owasp, mitre []string
}

type ruleKey struct{ source, signalType string }

var exactRules = map[ruleKey]rule{
	{"iam", "stale_admin_credential"}: {DomainIdentity, "Stale Admin Credential", refDefaults{cwe: []string{"CWE-798"}, mitre: []string{"T1078"}}},
	{"iam", "overprivileged_token"}:   {DomainIdentity, "Excessive Privilege", refDefaults{cwe: []string{"CWE-269"}, mitre: []string{"T1078"}}},
	{"iam", "mfa_disabled"}:           {DomainIdentity, "MFA Disabled", refDefaults{cwe: []string{"CWE-308"}, mitre: []string{"T1556"}}},
	{"cicd", "public_build_log_leak"}: {DomainApplication, "Secrets Exposure", refDefaults{cwe: []string{"CWE-532"}, owasp: []string{"A09:2021"}, mitre: []string{"T1552"}}},
	{"cspm", "public_bucket"}:         {DomainInfrastructure, "Public Storage", refDefaults{cwe: []string{"CWE-200"}, mitre: []string{"T1530"}}},
	{"cspm", "open_security_group"}:   {DomainInfrastructure, "Open Security Group", refDefaults{cwe: []string{"CWE-284"}, mitre: []string{"T1190"}}},
	{"cspm", "logging_disabled"}:      {DomainCloud, "Logging Disabled", refDefaults{cwe: []string{"CWE-778"}, mitre: []string{"T1562"}}},
	{"k8s", "privileged_container"}:   {DomainContainer, "Privileged Container", refDefaults{cwe: []string{"CWE-250"}, mitre: []string{"T1611"}}},
}

// keywordRules are checked in order against the signal type.
var keywordRules = []struct {
	keyword string
	rule    rule
}{
	{"sql_injection", rule{DomainApplication, "SQL Injection", refDefaults{cwe: []string{"CWE-89"}, owasp: []string{"A03:2021"}, mitre: []string{"T1190"}}}},
	{"sqli", rule{DomainApplication, "SQL Injection", refDefaults{cwe: []string{"CWE-89"}, owasp: []string{"A03:2021"}, mitre: []string{"T1190"}}}},
	{"xss", rule{DomainApplication, "Cross-Site Scripting", refDefaults{cwe: []string{"CWE-79"}, owasp: []string{"A03:2021"}}}},
	{"command_injection", rule{DomainApplication, "Command Injection", refDefaults{cwe: []string{"CWE-78"}, owasp: []string{"A03:2021"}, mitre: []string{"T1059"}}}},
	{"dependency", rule{DomainApplication, "Dependency Vulnerability", refDefaults{owasp: []string{"A06:2021"}}}},
	{"secret", rule{DomainApplication, "Secrets Exposure", refDefaults{cwe: []string{"CWE-798"}, mitre: []string{"T1552"}}}},
	{"privileged_container", rule{DomainContainer, "Privileged Container", refDefaults{cwe: []string{"CWE-250"}, mitre: []string{"T1611"}}}},
	{"dangerous_capability", rule{DomainContainer, "Dangerous Capability", refDefaults{cwe: []string{"CWE-250"}, mitre: []string{"T1611"}}}},
	{"base_image", rule{DomainContainer, "Outdated Base Image", refDefaults{owasp: []string{"A06:2021"}}}},
	{"mfa", rule{DomainIdentity, "MFA Disabled", refDefaults{cwe: []string{"CWE-308"}}}},
	{"credential", rule{DomainIdentity, "", refDefaults{mitre: []string{"T1078"}}}},
	{"privilege", rule{DomainIdentity, "Excessive Privilege", refDefaults{cwe: []string{"CWE-269"}}}},
	{"bucket", rule{DomainInfrastructure, "Public Storage", refDefaults{cwe: []string{"CWE-200"}, mitre: []string{"T1530"}}}},
	{"security_group", rule{DomainInfrastructure, "Open Security Group", refDefaults{cwe: []string{"CWE-284"}}}},
	{"unencrypted", rule{DomainInfrastructure, "Unencrypted Volume", refDefaults{cwe: []string{"CWE-311"}}}},
	{"kms", rule{DomainCloud, "Weak KMS Policy", refDefaults{cwe: []string{"CWE-326"}}}},
}

var sourceDomains = map[string]string{
	"sast":      DomainApplication,
	"dast":      DomainApplication,
	"sca":       DomainApplication,
	"appsec":    DomainApplication,
	"cicd":      DomainApplication,
	"iam":       DomainIdentity,
	"idp":       DomainIdentity,
	"okta":      DomainIdentity,
	"cspm":      DomainCloud,
	"aws":       DomainCloud,
	"gcp":       DomainCloud,
	"azure":     DomainCloud,
	"k8s":       DomainContainer,
	"docker":    DomainContainer,
	"registry":  DomainContainer,
	"edr":       DomainInfrastructure,
	"network":   DomainInfrastructure,
	"vuln_scan": DomainInfrastructure,
}

// classification is the resolved taxonomy for one signal.
type classification struct {
	domain       string
	categoryName string
	typeName     string
	resourceType string
	refs         refDefaults
}

// classify resolves the taxonomy for a signal. A recognized metadata domain
// wins over anything inferred; otherwise the exact rule, then the signal
// type keyword rules, then the source table apply, falling back to other.
func classify(source, signalType, metadataDomain string) classification {
	src := strings.ToLower(strings.TrimSpace(source))
	typ := strings.ToLower(strings.TrimSpace(signalType))

	r, matched := lookupRule(src, typ)
	if !matched {
		r = rule{domain: DomainOther}
		if d, ok := sourceDomains[src]; ok {
			r.domain = d
		}
	}
	// A metadata domain replaces only the domain. Type name and reference
	// defaults still come from the matched rule.
	if _, ok := domains[metadataDomain]; ok {
		r.domain = metadataDomain
	}
	if r.typeName == "" {
		r.typeName = titleize(signalType)
	}
	if r.typeName == "" {
		r.typeName = "Generic Finding"
	}

	profile := domains[r.domain]
	return classification{
		domain:       r.domain,
		categoryName: profile.category,
		typeName:     r.typeName,
		resourceType: profile.resourceType,
		refs:         r.refs,
	}
}

func lookupRule(source, signalType string) (rule, bool) {
	if r, ok := exactRules[ruleKey{source, signalType}]; ok {
		return r, true
	}
	for _, kr := range keywordRules {
		if strings.Contains(signalType, kr.keyword) {
			return kr.rule, true
		}
	}
	return rule{}, false
}

// DomainProfile returns the category name and default resource type for a
// domain. Unknown domains get the profile of DomainOther.
func DomainProfile(domain string) (category, resourceType string) {
	p, ok := domains[domain]
	if !ok {
		p = domains[DomainOther]
	}
	return p.category, p.resourceType
}
