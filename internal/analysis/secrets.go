package analysis

import (
	"regexp"

	"skillguard/internal/finding"
)

// CategoryCredentialLeak marks hardcoded secrets. The scorer has no special
// weight for it; the severity carries the signal.
const CategoryCredentialLeak = "Credential Leak"

// Secret detection runs on top of the language patterns: a leaked credential
// is dangerous in any file, including config formats no language scanner
// claims.

var (
	reAWSAccessKey = regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)
	rePrivateKey   = regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)
	reGitHubToken  = regexp.MustCompile(`\bgh[pousr]_[a-zA-Z0-9]{36,255}\b`)
	reNpmToken     = regexp.MustCompile(`\bnpm_[a-zA-Z0-9]{36}\b`)
	reSlackToken   = regexp.MustCompile(`\bxox[baprs]-[0-9a-zA-Z-]{10,48}\b`)
	reGenericKey   = regexp.MustCompile(`(?i)\b(?:api|access|secret)[_-]?key["']?\s*[:=]\s*["']?[A-Za-z0-9_\-]{20,}`)
)

type secretPattern struct {
	re          *regexp.Regexp
	severity    finding.Severity
	description string
}

var secretPatterns = []secretPattern{
	{rePrivateKey, finding.SeverityCritical, "Embeds a private key"},
	{reAWSAccessKey, finding.SeverityCritical, "Contains an AWS access key id"},
	{reGitHubToken, finding.SeverityCritical, "Contains a GitHub token"},
	{reNpmToken, finding.SeverityCritical, "Contains an npm access token"},
	{reSlackToken, finding.SeverityHigh, "Contains a Slack token"},
	{reGenericKey, finding.SeverityHigh, "Hardcodes an API key"},
}

// secretExts are non-source files still worth checking for leaked
// credentials.
var secretExts = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
	".toml": true,
	".ini":  true,
	".env":  true,
	".txt":  true,
	".md":   true,
	".pem":  true,
	".key":  true,
}

func scanSecrets(path, lang, content string) []finding.CodeFinding {
	var findings []finding.CodeFinding
	for _, p := range secretPatterns {
		for _, match := range p.re.FindAllStringIndex(content, -1) {
			line, col := position(content, match[0])
			findings = append(findings, finding.CodeFinding{
				File:        path,
				Line:        line,
				Column:      col,
				Severity:    p.severity,
				Category:    CategoryCredentialLeak,
				Description: p.description,
				Snippet:     snippetAt(content, match[0]),
				Language:    lang,
			})
		}
	}
	return findings
}
