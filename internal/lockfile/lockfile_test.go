package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillguard/internal/finding"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func refByName(refs []finding.PackageRef, name string) (finding.PackageRef, bool) {
	for _, r := range refs {
		if r.Name == name {
			return r, true
		}
	}
	return finding.PackageRef{}, false
}

func TestPackagesLockV3(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package-lock.json", `{
		"name": "fixture",
		"lockfileVersion": 3,
		"packages": {
			"": {"name": "fixture", "version": "1.0.0"},
			"node_modules/lodash": {"version": "4.17.21"},
			"node_modules/@babel/core": {"version": "7.23.0", "dev": true},
			"node_modules/a/node_modules/minimist": {"version": "0.0.8"},
			"packages/local-lib": {"version": "0.1.0"},
			"node_modules/linked": {"version": "1.0.0", "link": true}
		}
	}`)

	refs := Packages(dir)
	require.Len(t, refs, 3)

	lodash, ok := refByName(refs, "lodash")
	require.True(t, ok)
	assert.Equal(t, "4.17.21", lodash.Version)
	assert.False(t, lodash.Dev)

	babel, ok := refByName(refs, "@babel/core")
	require.True(t, ok, "scoped package name should survive path extraction")
	assert.Equal(t, "7.23.0", babel.Version)
	assert.True(t, babel.Dev)

	minimist, ok := refByName(refs, "minimist")
	require.True(t, ok, "nested install paths should resolve to the innermost name")
	assert.Equal(t, "0.0.8", minimist.Version)
}

func TestPackagesLockV1DevPropagation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 1,
		"dependencies": {
			"mocha": {
				"version": "10.0.0",
				"dev": true,
				"dependencies": {
					"debug": {"version": "4.3.4"}
				}
			},
			"express": {"version": "4.18.2"}
		}
	}`)

	refs := Packages(dir)
	require.Len(t, refs, 3)

	mocha, _ := refByName(refs, "mocha")
	assert.True(t, mocha.Dev)

	debug, ok := refByName(refs, "debug")
	require.True(t, ok)
	assert.True(t, debug.Dev, "children of a dev subtree are dev dependencies")

	express, _ := refByName(refs, "express")
	assert.False(t, express.Dev)
}

func TestPackagesPrefersFlatMapOverV1Tree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 2,
		"packages": {
			"": {"version": "1.0.0"},
			"node_modules/lodash": {"version": "4.17.21"}
		},
		"dependencies": {
			"lodash": {"version": "4.17.20"},
			"stale-entry": {"version": "1.0.0"}
		}
	}`)

	refs := Packages(dir)
	require.Len(t, refs, 1)
	assert.Equal(t, "lodash", refs[0].Name)
	assert.Equal(t, "4.17.21", refs[0].Version)
}

func TestPackagesShrinkwrapFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "npm-shrinkwrap.json", `{
		"lockfileVersion": 3,
		"packages": {
			"": {},
			"node_modules/left-pad": {"version": "1.3.0"}
		}
	}`)

	refs := Packages(dir)
	require.Len(t, refs, 1)
	assert.Equal(t, "left-pad", refs[0].Name)
}

func TestPackagesManifestFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
		"dependencies": {
			"lodash": "^4.17.21",
			"express": "~4.18.2",
			"minimist": ">=1.2.6",
			"react": "16.8.0 || ^17.0.0"
		},
		"devDependencies": {
			"mocha": "^10.0.0",
			"lodash": "^3.0.0"
		},
		"peerDependencies": {
			"react": ">=16"
		},
		"optionalDependencies": {
			"fsevents": "=2.3.2"
		}
	}`)

	refs := Packages(dir)
	require.Len(t, refs, 5)

	lodash, _ := refByName(refs, "lodash")
	assert.Equal(t, "4.17.21", lodash.Version, "caret prefix should be stripped")
	assert.False(t, lodash.Dev, "dependencies section wins over devDependencies")

	express, _ := refByName(refs, "express")
	assert.Equal(t, "4.18.2", express.Version)

	minimist, _ := refByName(refs, "minimist")
	assert.Equal(t, "1.2.6", minimist.Version)

	react, _ := refByName(refs, "react")
	assert.Equal(t, "16.8.0", react.Version, "compound ranges keep only the first clause")

	mocha, _ := refByName(refs, "mocha")
	assert.True(t, mocha.Dev)

	fsevents, _ := refByName(refs, "fsevents")
	assert.Equal(t, "2.3.2", fsevents.Version)
}

func TestPackagesMalformedLockFallsBackToManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package-lock.json", `{not json`)
	writeFile(t, dir, "package.json", `{"dependencies": {"lodash": "^4.17.21"}}`)

	refs := Packages(dir)
	require.Len(t, refs, 1)
	assert.Equal(t, "lodash", refs[0].Name)
	assert.Equal(t, "4.17.21", refs[0].Version)
}

func TestPackagesValidEmptyLockDoesNotFallBack(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package-lock.json", `{"lockfileVersion": 3, "packages": {"": {"version": "1.0.0"}}}`)
	writeFile(t, dir, "package.json", `{"dependencies": {"lodash": "^4.17.21"}}`)

	assert.Empty(t, Packages(dir), "a parseable lock is authoritative even when empty")
}

func TestPackagesNothingToParse(t *testing.T) {
	assert.Empty(t, Packages(t.TempDir()))
}

func TestPackagesMalformedManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{{{`)
	assert.Empty(t, Packages(dir))
}

func TestCleanVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"^4.17.21", "4.17.21"},
		{"~1.2.3", "1.2.3"},
		{">=1.2.6", "1.2.6"},
		{"<=2.0.0", "2.0.0"},
		{">1.0.0", "1.0.0"},
		{"=2.3.2", "2.3.2"},
		{">= 1.2.3", "1.2.3"},
		{"1.2.3", "1.2.3"},
		{"1.2.3 || 2.x", "1.2.3"},
		{"*", "*"},
		{"latest", "latest"},
	}

	for _, tt := range tests {
		if got := cleanVersion(tt.in); got != tt.want {
			t.Errorf("cleanVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedupeMergesDevFlag(t *testing.T) {
	refs := dedupe([]finding.PackageRef{
		{Name: "debug", Version: "4.3.4", Dev: true},
		{Name: "debug", Version: "4.3.4", Dev: false},
		{Name: "debug", Version: "2.6.9", Dev: true},
	})

	require.Len(t, refs, 2)
	assert.Equal(t, "2.6.9", refs[0].Version)
	assert.True(t, refs[0].Dev)
	assert.Equal(t, "4.3.4", refs[1].Version)
	assert.False(t, refs[1].Dev, "any production occurrence clears the dev flag")
}
