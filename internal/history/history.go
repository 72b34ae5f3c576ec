// Package history persists finished scan summaries so past results can be
// listed and compared. It stores outcomes only, never raw advisory lookups.
package history

import (
	"fmt"
	"strings"
	"time"

	"skillguard/internal/finding"
)

// Record is one stored scan summary.
type Record struct {
	ID                 int64             `json:"id"`
	Path               string            `json:"path"`
	RiskScore          int               `json:"risk_score"`
	RiskLevel          finding.RiskLevel `json:"risk_level"`
	CodeFindings       int               `json:"code_findings"`
	DependencyFindings int               `json:"dependency_findings"`
	ScannedFiles       int               `json:"scanned_files"`
	DurationMS         int64             `json:"duration_ms"`
	CreatedAt          time.Time         `json:"created_at"`
}

// NewRecord summarizes a scan result for storage.
func NewRecord(res *finding.ScanResult) Record {
	return Record{
		Path:               res.Path,
		RiskScore:          res.RiskScore,
		RiskLevel:          res.RiskLevel,
		CodeFindings:       len(res.CodeFindings),
		DependencyFindings: len(res.DependencyFindings),
		ScannedFiles:       res.ScannedFiles,
		DurationMS:         res.DurationMS,
	}
}

// Store interface defines the methods for persistent scan storage
type Store interface {
	Close() error
	SaveScan(rec Record) error
	RecentScans(limit int) ([]Record, error)
}

// StoreConfig holds configuration for the storage backend
type StoreConfig struct {
	Backend          string // "sqlite" or "postgres"
	ConnectionString string // File path for SQLite, DSN for Postgres
}

// NewStore creates a new Store instance based on the provided configuration
func NewStore(config StoreConfig) (Store, error) {
	switch strings.ToLower(config.Backend) {
	case "postgres", "postgresql":
		if config.ConnectionString == "" {
			return nil, fmt.Errorf("postgres connection string is required")
		}
		return NewPostgresStore(config.ConnectionString)
	case "sqlite", "sqlite3", "":
		if config.ConnectionString == "" {
			// Default to .skillguard.db if not provided
			config.ConnectionString = ".skillguard.db"
		}
		return NewSQLiteStore(config.ConnectionString)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Backend)
	}
}
