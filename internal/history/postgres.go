package history

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"skillguard/internal/finding"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store and applies migrations
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id SERIAL PRIMARY KEY,
			path TEXT NOT NULL,
			risk_score INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			code_findings INTEGER NOT NULL,
			dependency_findings INTEGER NOT NULL,
			scanned_files INTEGER NOT NULL,
			duration_ms BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at DESC);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveScan stores one finished scan summary
func (s *PostgresStore) SaveScan(rec Record) error {
	query := `INSERT INTO scans (path, risk_score, risk_level, code_findings, dependency_findings, scanned_files, duration_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`
	_, err := s.db.Exec(query, rec.Path, rec.RiskScore, string(rec.RiskLevel), rec.CodeFindings, rec.DependencyFindings, rec.ScannedFiles, rec.DurationMS)
	return err
}

// RecentScans retrieves the most recent scan records for display, newest first
func (s *PostgresStore) RecentScans(limit int) ([]Record, error) {
	query := `SELECT id, path, risk_score, risk_level, code_findings, dependency_findings, scanned_files, duration_ms, created_at
	FROM scans ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var rec Record
		var level string
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.RiskScore, &level, &rec.CodeFindings, &rec.DependencyFindings, &rec.ScannedFiles, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.RiskLevel = finding.RiskLevel(level)
		results = append(results, rec)
	}
	return results, nil
}
