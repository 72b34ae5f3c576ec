package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"skillguard/internal/finding"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store and applies migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		risk_score INTEGER NOT NULL,
		risk_level TEXT NOT NULL,
		code_findings INTEGER NOT NULL,
		dependency_findings INTEGER NOT NULL,
		scanned_files INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveScan stores one finished scan summary
func (s *SQLiteStore) SaveScan(rec Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	query := `INSERT INTO scans (path, risk_score, risk_level, code_findings, dependency_findings, scanned_files, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, rec.Path, rec.RiskScore, string(rec.RiskLevel), rec.CodeFindings, rec.DependencyFindings, rec.ScannedFiles, rec.DurationMS, createdAt)
	return err
}

// RecentScans retrieves the most recent scan records, newest first
func (s *SQLiteStore) RecentScans(limit int) ([]Record, error) {
	query := `SELECT id, path, risk_score, risk_level, code_findings, dependency_findings, scanned_files, duration_ms, created_at
	FROM scans ORDER BY created_at DESC, id DESC LIMIT ?`
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
