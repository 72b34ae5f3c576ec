// Package analysis scans source files for dangerous code patterns across the
// languages an AI skill package typically ships. Detection is regex based:
// cheap, language-lenient, and tuned for the categories the risk scorer
// understands.
package analysis

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"skillguard/internal/finding"
	"skillguard/internal/telemetry"
)

// Directories that never contain first-party skill code.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	".skillguard":  true,
}

// Analyzer walks a directory tree and scans recognized source files.
type Analyzer struct {
	// MaxFileSize guards against scanning bundled or generated blobs;
	// larger files are skipped.
	MaxFileSize int64
}

// NewAnalyzer returns an Analyzer with a 1 MiB file size limit.
func NewAnalyzer() *Analyzer {
	return &Analyzer{MaxFileSize: 1 << 20}
}

// Analyze scans every recognized file under root and returns the findings
// plus the number of files scanned. Unreadable files are skipped; only a bad
// root errors.
func (a *Analyzer) Analyze(root string) ([]finding.CodeFinding, int, error) {
	var findings []finding.CodeFinding
	scanned := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			telemetry.LogDebug("unreadable entry skipped", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if _, source := extLanguages[ext]; !source && !secretExts[ext] {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > a.MaxFileSize {
			return nil
		}

		fileFindings, err := a.AnalyzeFile(path)
		if err != nil {
			telemetry.LogDebug("file unreadable, skipped", "path", path, "error", err)
			return nil
		}
		scanned++
		findings = append(findings, fileFindings...)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return findings, scanned, nil
}

// AnalyzeFile scans a single file, dispatching on its extension. Source
// files get the language patterns plus secret detection; recognized config
// formats get secret detection alone. Anything else yields no findings.
func (a *Analyzer) AnalyzeFile(path string) ([]finding.CodeFinding, error) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, source := extLanguages[ext]
	if !source && !secretExts[ext] {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)

	var findings []finding.CodeFinding
	if source {
		findings = scanContent(path, lang, content)
	}
	findings = append(findings, scanSecrets(path, lang, content)...)
	sortFindings(findings)
	return findings, nil
}

func scanContent(path, lang, content string) []finding.CodeFinding {
	var findings []finding.CodeFinding
	for _, p := range languagePatterns[lang] {
		for _, match := range p.re.FindAllStringIndex(content, -1) {
			line, col := position(content, match[0])
			findings = append(findings, finding.CodeFinding{
				File:        path,
				Line:        line,
				Column:      col,
				Severity:    p.severity,
				Category:    p.category,
				Description: p.description,
				Snippet:     snippetAt(content, match[0]),
				Language:    lang,
			})
		}
	}
	sortFindings(findings)
	return findings
}

func sortFindings(findings []finding.CodeFinding) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		if findings[i].Column != findings[j].Column {
			return findings[i].Column < findings[j].Column
		}
		return findings[i].Category < findings[j].Category
	})
}

// position converts a byte offset into 1-based line and column numbers.
func position(content string, offset int) (line, col int) {
	prefix := content[:offset]
	line = strings.Count(prefix, "\n") + 1
	col = offset - strings.LastIndex(prefix, "\n")
	return line, col
}

// snippetAt returns the trimmed source line containing the offset, capped so
// minified one-liners do not flood the report.
func snippetAt(content string, offset int) string {
	start := strings.LastIndex(content[:offset], "\n") + 1
	end := strings.IndexByte(content[offset:], '\n')
	if end == -1 {
		end = len(content)
	} else {
		end += offset
	}
	snippet := strings.TrimSpace(content[start:end])
	if len(snippet) > 160 {
		snippet = snippet[:160]
	}
	return snippet
}
