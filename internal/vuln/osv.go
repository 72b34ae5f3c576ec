// Package vuln queries the OSV database for known vulnerabilities in npm
// packages. Lookups are best-effort: the batch endpoint is tried first, a
// failed batch degrades to individual queries, and packages that still cannot
// be resolved are skipped rather than failing the scan.
package vuln

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"skillguard/internal/finding"
	"skillguard/internal/telemetry"
)

const (
	defaultBatchURL = "https://api.osv.dev/v1/querybatch"
	defaultQueryURL = "https://api.osv.dev/v1/query"

	// OSV rejects batch requests above this many queries.
	maxBatchSize = 1000
)

// OSVClient checks packages against the OSV vulnerability database.
type OSVClient struct {
	HTTPClient *http.Client
	BatchURL   string
	QueryURL   string
}

// NewOSVClient returns a client against the production OSV endpoints.
func NewOSVClient() *OSVClient {
	return &OSVClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BatchURL:   defaultBatchURL,
		QueryURL:   defaultQueryURL,
	}
}

type osvQuery struct {
	Package osvPackage `json:"package"`
	Version string     `json:"version,omitempty"`
}

type osvPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type osvBatchRequest struct {
	Queries []osvQuery `json:"queries"`
}

type osvBatchResponse struct {
	Results []osvResult `json:"results"`
}

type osvResult struct {
	Vulns []Advisory `json:"vulns"`
}

type osvQueryResponse struct {
	Vulns []Advisory `json:"vulns"`
}

// Lookup queries OSV and flattens the advisories into dependency findings.
func (c *OSVClient) Lookup(ctx context.Context, refs []finding.PackageRef) []finding.DependencyFinding {
	return Findings(c.Query(ctx, refs))
}

// Query looks up advisories for the given packages and returns them keyed by
// "name@version". Packages with no known advisories are absent from the map.
func (c *OSVClient) Query(ctx context.Context, refs []finding.PackageRef) map[string][]Advisory {
	results := make(map[string][]Advisory)
	for start := 0; start < len(refs); start += maxBatchSize {
		end := min(start+maxBatchSize, len(refs))
		chunk := refs[start:end]
		if !c.queryBatch(ctx, chunk, results) {
			// One individual retry per package of the failed chunk, then
			// give up on whatever is left.
			for _, ref := range chunk {
				c.queryOne(ctx, ref, results)
			}
		}
	}
	return results
}

func refKey(ref finding.PackageRef) string {
	return ref.Name + "@" + ref.Version
}

func (c *OSVClient) queryBatch(ctx context.Context, refs []finding.PackageRef, results map[string][]Advisory) bool {
	queries := make([]osvQuery, 0, len(refs))
	for _, ref := range refs {
		queries = append(queries, osvQuery{
			Package: osvPackage{Name: ref.Name, Ecosystem: "npm"},
			Version: ref.Version,
		})
	}

	var batch osvBatchResponse
	if !c.post(ctx, c.BatchURL, osvBatchRequest{Queries: queries}, &batch) {
		telemetry.LogDebug("osv batch query failed, falling back to individual queries", "packages", len(refs))
		return false
	}

	// Batch results align positionally with the submitted queries.
	for i, res := range batch.Results {
		if i >= len(refs) || len(res.Vulns) == 0 {
			continue
		}
		key := refKey(refs[i])
		results[key] = append(results[key], res.Vulns...)
	}
	return true
}

func (c *OSVClient) queryOne(ctx context.Context, ref finding.PackageRef, results map[string][]Advisory) {
	query := osvQuery{
		Package: osvPackage{Name: ref.Name, Ecosystem: "npm"},
		Version: ref.Version,
	}

	var resp osvQueryResponse
	if !c.post(ctx, c.QueryURL, query, &resp) {
		telemetry.LogDebug("osv query failed, skipping package", "package", ref.Name, "version", ref.Version)
		return
	}
	if len(resp.Vulns) > 0 {
		key := refKey(ref)
		results[key] = append(results[key], resp.Vulns...)
	}
}

func (c *OSVClient) post(ctx context.Context, url string, payload any, out any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(out) == nil
}

// Findings flattens advisory lookups into dependency findings, one per
// advisory, in a stable package order.
func Findings(advisories map[string][]Advisory) []finding.DependencyFinding {
	keys := make([]string, 0, len(advisories))
	for key := range advisories {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var findings []finding.DependencyFinding
	for _, key := range keys {
		name, version := splitRefKey(key)
		for _, adv := range advisories[key] {
			findings = append(findings, findingFromAdvisory(name, version, adv))
		}
	}
	return findings
}

// splitRefKey undoes refKey. Scoped package names contain "@" themselves, so
// the version separator is the last one.
func splitRefKey(key string) (name, version string) {
	if i := strings.LastIndex(key, "@"); i > 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

func findingFromAdvisory(name, version string, adv Advisory) finding.DependencyFinding {
	f := finding.DependencyFinding{
		Name:               name,
		Version:            version,
		Severity:           finding.SeverityMedium,
		Reason:             advisoryReason(adv),
		CVE:                adv.VulnID(),
		URL:                adv.AdvisoryURL(),
		VulnerableVersions: adv.AffectedVersions(),
		Source:             finding.SourceOSV,
	}
	if score := adv.CVSSScore(); score > 0 {
		f.CVSSScore = score
		f.Severity = finding.SeverityFromCVSS(score)
	}
	if fixed := adv.FixedVersion(); fixed != "" {
		f.FixAvailable = "Upgrade " + name + " to " + fixed
	}
	return f
}

func advisoryReason(adv Advisory) string {
	if adv.Summary != "" {
		return adv.Summary
	}
	if adv.Details != "" {
		if i := strings.IndexByte(adv.Details, '\n'); i > 0 {
			return adv.Details[:i]
		}
		return adv.Details
	}
	return "Known vulnerability reported by OSV"
}
