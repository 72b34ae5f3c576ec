package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillguard/internal/finding"
)

func TestNewStore_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStore(StoreConfig{Backend: "sqlite", ConnectionString: dbPath})
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, ok := store.(*SQLiteStore)
	assert.True(t, ok, "Expected a SQLiteStore instance")
}

func TestNewStore_DefaultsToSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "default.db")

	store, err := NewStore(StoreConfig{Backend: "", ConnectionString: dbPath})
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*SQLiteStore)
	assert.True(t, ok, "Empty backend should fall back to SQLite")
}

func TestNewStore_PostgresRequiresDSN(t *testing.T) {
	_, err := NewStore(StoreConfig{Backend: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection string is required")
}

func TestNewStore_UnsupportedBackend(t *testing.T) {
	_, err := NewStore(StoreConfig{Backend: "mysql", ConnectionString: "dsn"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store type")
}

func TestNewRecord(t *testing.T) {
	res := &finding.ScanResult{
		Path:      "/tmp/skill",
		RiskScore: 62,
		RiskLevel: finding.RiskHigh,
		CodeFindings: []finding.CodeFinding{
			{Severity: finding.SeverityHigh, Category: "Shell Execution"},
		},
		DependencyFindings: []finding.DependencyFinding{
			{Name: "lodash", Severity: finding.SeverityHigh},
			{Name: "minimist", Severity: finding.SeverityLow},
		},
		ScannedFiles: 9,
		DurationMS:   840,
	}

	rec := NewRecord(res)

	assert.Equal(t, "/tmp/skill", rec.Path)
	assert.Equal(t, 62, rec.RiskScore)
	assert.Equal(t, finding.RiskHigh, rec.RiskLevel)
	assert.Equal(t, 1, rec.CodeFindings)
	assert.Equal(t, 2, rec.DependencyFindings)
	assert.Equal(t, 9, rec.ScannedFiles)
	assert.Equal(t, int64(840), rec.DurationMS)
}
