// Package lockfile resolves the npm dependency set declared in a scan target.
// It prefers resolved lock files over manifest ranges and never fails: any
// unreadable or malformed input yields an empty package list, because a
// target without parseable dependencies simply has nothing to check.
package lockfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"skillguard/internal/finding"
	"skillguard/internal/telemetry"
)

// Lock file names checked in order. npm-shrinkwrap.json is the publishable
// twin of package-lock.json and shares its schema.
var lockNames = []string{"package-lock.json", "npm-shrinkwrap.json"}

// Packages resolves the dependency set declared under root. A readable lock
// file wins even when empty; the manifest is only consulted when no lock file
// can be parsed.
func Packages(root string) []finding.PackageRef {
	for _, name := range lockNames {
		path := filepath.Join(root, name)
		refs, err := parseLockFile(path)
		if err == nil {
			return refs
		}
		if !os.IsNotExist(err) {
			telemetry.LogDebug("lock file unreadable, trying next source", "path", path, "error", err)
		}
	}

	manifestPath := filepath.Join(root, "package.json")
	refs, err := parseManifest(manifestPath)
	if err != nil {
		if !os.IsNotExist(err) {
			telemetry.LogDebug("manifest unreadable, no dependencies to check", "path", manifestPath, "error", err)
		}
		return nil
	}
	return refs
}

type lockFile struct {
	LockfileVersion int                       `json:"lockfileVersion"`
	Packages        map[string]lockPackage    `json:"packages"`
	Dependencies    map[string]lockDependency `json:"dependencies"`
}

type lockPackage struct {
	Version string `json:"version"`
	Dev     bool   `json:"dev"`
	Link    bool   `json:"link"`
}

type lockDependency struct {
	Version      string                    `json:"version"`
	Dev          bool                      `json:"dev"`
	Dependencies map[string]lockDependency `json:"dependencies"`
}

func parseLockFile(path string) ([]finding.PackageRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lock lockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}

	// npm v7+ writes both "packages" and a back-compat "dependencies" tree;
	// the flat map is authoritative when present.
	if len(lock.Packages) > 0 {
		return packagesFromFlatMap(lock.Packages), nil
	}
	if len(lock.Dependencies) > 0 {
		var refs []finding.PackageRef
		walkV1(lock.Dependencies, false, &refs)
		return dedupe(refs), nil
	}
	return nil, nil
}

// packagesFromFlatMap handles lockfileVersion 2/3: a map keyed by install
// path ("node_modules/lodash", "node_modules/a/node_modules/@scope/b"). The
// "" key describes the root project itself and entries outside node_modules
// are local workspace packages; both are skipped.
func packagesFromFlatMap(pkgs map[string]lockPackage) []finding.PackageRef {
	refs := make([]finding.PackageRef, 0, len(pkgs))
	for path, pkg := range pkgs {
		if path == "" || pkg.Link {
			continue
		}
		name := nameFromLockPath(path)
		if name == "" || pkg.Version == "" {
			continue
		}
		refs = append(refs, finding.PackageRef{Name: name, Version: pkg.Version, Dev: pkg.Dev})
	}
	return dedupe(refs)
}

func nameFromLockPath(path string) string {
	const marker = "node_modules/"
	idx := strings.LastIndex(path, marker)
	if idx == -1 {
		return ""
	}
	return path[idx+len(marker):]
}

// walkV1 handles the lockfileVersion 1 nested tree. npm v6 only marks the
// top-level entry of a dev subtree, so the dev flag propagates down.
func walkV1(deps map[string]lockDependency, parentDev bool, out *[]finding.PackageRef) {
	for name, dep := range deps {
		dev := dep.Dev || parentDev
		if dep.Version != "" {
			*out = append(*out, finding.PackageRef{Name: name, Version: dep.Version, Dev: dev})
		}
		if len(dep.Dependencies) > 0 {
			walkV1(dep.Dependencies, dev, out)
		}
	}
}

type manifest struct {
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

func parseManifest(path string) ([]finding.PackageRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var refs []finding.PackageRef
	add := func(deps map[string]string, dev bool) {
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			refs = append(refs, finding.PackageRef{Name: name, Version: cleanVersion(deps[name]), Dev: dev})
		}
	}
	add(m.Dependencies, false)
	add(m.DevDependencies, true)
	add(m.PeerDependencies, false)
	add(m.OptionalDependencies, false)
	return refs, nil
}

// cleanVersion reduces a manifest range to a best-effort concrete version:
// strip one leading range operator and keep the first space-delimited token.
// Compound ranges ("1.2.3 || 2.x") lose everything past the first clause.
func cleanVersion(v string) string {
	v = strings.TrimSpace(v)
	for _, p := range []string{">=", "<=", "^", "~", ">", "<", "="} {
		if strings.HasPrefix(v, p) {
			v = strings.TrimSpace(strings.TrimPrefix(v, p))
			break
		}
	}
	if i := strings.IndexByte(v, ' '); i >= 0 {
		v = v[:i]
	}
	return v
}

// dedupe collapses identical name@version pairs, keeping the first and
// clearing the dev flag if any occurrence is a production dependency. Output
// order is stable regardless of map iteration order.
func dedupe(refs []finding.PackageRef) []finding.PackageRef {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].Version < refs[j].Version
	})

	out := refs[:0]
	index := make(map[string]int)
	for _, ref := range refs {
		key := ref.Name + "@" + ref.Version
		if i, ok := index[key]; ok {
			if !ref.Dev {
				out[i].Dev = false
			}
			continue
		}
		index[key] = len(out)
		out = append(out, ref)
	}
	return out
}
