// Package threat matches package names against a built-in table of known
// malicious npm packages and a set of suspicious naming patterns. Matching is
// pure string work with no I/O, so it is always available even when every
// remote source is down.
package threat

import (
	"regexp"
	"strings"

	"skillguard/internal/finding"
)

// Entry describes one known-bad package.
type Entry struct {
	Severity finding.Severity
	Reason   string
}

// knownThreats is keyed by lowercased package name. Typosquats of popular
// packages are critical regardless of version because installing them was
// never legitimate; compromised legitimate packages rank high since only
// specific releases were affected.
var knownThreats = map[string]Entry{
	"lodahs":         {finding.SeverityCritical, "Typosquat of lodash"},
	"crossenv":       {finding.SeverityCritical, "Typosquat of cross-env that exfiltrated environment variables"},
	"mongose":        {finding.SeverityCritical, "Typosquat of mongoose"},
	"babelcli":       {finding.SeverityCritical, "Typosquat of babel-cli"},
	"d3.js":          {finding.SeverityCritical, "Typosquat of d3"},
	"jquery.js":      {finding.SeverityCritical, "Typosquat of jquery"},
	"getcookies":     {finding.SeverityCritical, "Contained a backdoor disguised as a cookie parser"},
	"flatmap-stream": {finding.SeverityCritical, "Carried the payload of the event-stream supply chain attack"},
	"event-stream":   {finding.SeverityCritical, "Release 3.3.6 shipped a bitcoin-wallet stealing payload"},
	"eslint-scope":   {finding.SeverityHigh, "Release 3.7.2 was compromised to steal npm credentials"},
	"ua-parser-js":   {finding.SeverityHigh, "Compromised releases shipped a cryptominer and password stealer"},
	"coa":            {finding.SeverityHigh, "Release 2.0.3 was hijacked to deliver malware"},
	"rc":             {finding.SeverityHigh, "Releases 1.2.9, 1.3.9 and 2.3.9 were hijacked to deliver malware"},
	"node-ipc":       {finding.SeverityHigh, "Protestware releases destroyed files on machines in certain locales"},
}

var (
	reCredentialTheft = regexp.MustCompile(`(?i)(steal|grab|harvest)[-_]?(cred|token|password|cookie)|(cred(ential)?|token|password|cookie)s?[-_]?(steal|grab|harvest)`)
	reKeylogger       = regexp.MustCompile(`(?i)\bkey.?log`)
	reBackdoor        = regexp.MustCompile(`(?i)\b(back.?door|root.?kit|trojan)`)
	reMiner           = regexp.MustCompile(`(?i)\b(crypto|coin|bitcoin|monero|xmr).?min(er|ing)`)
	reShadyPrefix     = regexp.MustCompile(`(?i)^(free|hack|crack)-`)
)

type namePattern struct {
	re       *regexp.Regexp
	severity finding.Severity
	reason   string
}

// namePatterns are checked in order and the first match wins, so the most
// damning patterns come first.
var namePatterns = []namePattern{
	{reCredentialTheft, finding.SeverityCritical, "Package name suggests credential theft"},
	{reKeylogger, finding.SeverityCritical, "Package name suggests keylogging"},
	{reBackdoor, finding.SeverityCritical, "Package name suggests a backdoor or rootkit"},
	{reMiner, finding.SeverityHigh, "Package name suggests cryptocurrency mining"},
	{reShadyPrefix, finding.SeverityMedium, "Package name uses a suspicious prefix"},
}

// Matcher applies the built-in threat intelligence to package refs.
type Matcher struct{}

// NewMatcher returns a Matcher over the built-in tables.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match checks one package. An exact table hit wins over name patterns; clean
// names return nil.
func (m *Matcher) Match(ref finding.PackageRef) *finding.DependencyFinding {
	if entry, ok := knownThreats[strings.ToLower(ref.Name)]; ok {
		return &finding.DependencyFinding{
			Name:     ref.Name,
			Version:  ref.Version,
			Severity: entry.Severity,
			Reason:   entry.Reason,
			Source:   finding.SourceThreatDB,
		}
	}

	for _, p := range namePatterns {
		if p.re.MatchString(ref.Name) {
			return &finding.DependencyFinding{
				Name:     ref.Name,
				Version:  ref.Version,
				Severity: p.severity,
				Reason:   p.reason,
				Source:   finding.SourcePattern,
			}
		}
	}
	return nil
}

// MatchAll runs Match over a package set, keeping input order.
func (m *Matcher) MatchAll(refs []finding.PackageRef) []finding.DependencyFinding {
	var findings []finding.DependencyFinding
	for _, ref := range refs {
		if f := m.Match(ref); f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}
