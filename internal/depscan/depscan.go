// Package depscan reconciles dependency findings from the threat table, npm
// audit and the OSV database into one deduplicated, severity-ordered list.
package depscan

import (
	"context"
	"sort"
	"sync"

	"skillguard/internal/finding"
	"skillguard/internal/telemetry"
)

// AuditSource produces findings by auditing the project at dir.
type AuditSource interface {
	Run(ctx context.Context, dir string) []finding.DependencyFinding
}

// AdvisorySource produces findings by looking packages up in a vulnerability
// database.
type AdvisorySource interface {
	Lookup(ctx context.Context, refs []finding.PackageRef) []finding.DependencyFinding
}

// ThreatSource checks a single package against static threat intelligence.
type ThreatSource interface {
	Match(ref finding.PackageRef) *finding.DependencyFinding
}

// Reconciler fans out to the configured sources and merges their findings.
// Any source may be nil, in which case it simply contributes nothing; a
// reconcile never fails outright.
type Reconciler struct {
	Threats  ThreatSource
	Audit    AuditSource
	Database AdvisorySource

	// Offline skips the audit and database sources entirely. The threat
	// table needs no network and always runs.
	Offline bool
}

// Reconcile gathers findings for the project at dir with the given resolved
// package set. The threat table runs first and owns its identity keys; audit
// and database findings are merged in afterwards, with audit winning
// key collisions between the two.
func (r *Reconciler) Reconcile(ctx context.Context, dir string, refs []finding.PackageRef) []finding.DependencyFinding {
	var results []finding.DependencyFinding
	seen := make(map[string]bool)

	if r.Threats != nil {
		for _, ref := range refs {
			f := r.Threats.Match(ref)
			if f == nil {
				continue
			}
			key := f.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, *f)
		}
	}

	if !r.Offline {
		auditFindings, dbFindings := r.fetch(ctx, dir, refs)
		for _, f := range mergeRemote(auditFindings, dbFindings) {
			key := f.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, f)
		}
	}

	// Stable: sources emit deterministic order, ties keep it.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Severity.Weight() > results[j].Severity.Weight()
	})
	return results
}

// fetch runs the audit and the database lookup concurrently. Each goroutine
// writes only its own slot, so the join needs no locking.
func (r *Reconciler) fetch(ctx context.Context, dir string, refs []finding.PackageRef) (auditFindings, dbFindings []finding.DependencyFinding) {
	var wg sync.WaitGroup

	if r.Audit != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			auditFindings = r.Audit.Run(ctx, dir)
		}()
	}

	if r.Database != nil && len(refs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dbFindings = r.Database.Lookup(ctx, refs)
		}()
	}

	wg.Wait()
	telemetry.LogDebug("dependency sources fetched", "audit", len(auditFindings), "database", len(dbFindings))
	return auditFindings, dbFindings
}

// mergeRemote combines audit and database findings. On an identity-key
// collision the audit finding wins: it reflects the resolved dependency tree
// while the database lookup is a best-effort match. Database-only fields
// (version range, fix version) do not transfer; the audit record stands as
// reported.
func mergeRemote(auditFindings, dbFindings []finding.DependencyFinding) []finding.DependencyFinding {
	merged := make([]finding.DependencyFinding, 0, len(auditFindings)+len(dbFindings))
	seen := make(map[string]bool, len(auditFindings))

	for _, f := range auditFindings {
		key := f.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, f)
	}
	for _, f := range dbFindings {
		key := f.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, f)
	}
	return merged
}
