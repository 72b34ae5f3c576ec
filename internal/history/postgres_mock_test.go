package history

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"skillguard/internal/finding"
)

// withMockStore runs fn against a PostgresStore backed by sqlmock and
// verifies all expectations were met.
func withMockStore(t *testing.T, fn func(*PostgresStore, sqlmock.Sqlmock)) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	store := &PostgresStore{db: db}
	fn(store, mock)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostgresSaveScan(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectExec("INSERT INTO scans").
				WithArgs("/tmp/skill", 87, "critical", 3, 2, 12, int64(1250)).
				WillReturnResult(sqlmock.NewResult(1, 1))

			err := store.SaveScan(Record{
				Path:               "/tmp/skill",
				RiskScore:          87,
				RiskLevel:          finding.RiskCritical,
				CodeFindings:       3,
				DependencyFindings: 2,
				ScannedFiles:       12,
				DurationMS:         1250,
			})
			assert.NoError(t, err)
		})
	})

	t.Run("Insert Error", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectExec("INSERT INTO scans").
				WillReturnError(errors.New("connection refused"))

			err := store.SaveScan(Record{Path: "/tmp/skill"})
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "connection refused")
		})
	})
}

func TestPostgresRecentScans(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			now := time.Now()
			rows := sqlmock.NewRows([]string{
				"id", "path", "risk_score", "risk_level",
				"code_findings", "dependency_findings", "scanned_files",
				"duration_ms", "created_at",
			}).
				AddRow(2, "/tmp/b", 40, "medium", 1, 1, 5, int64(300), now).
				AddRow(1, "/tmp/a", 10, "low", 0, 1, 2, int64(120), now.Add(-time.Hour))

			mock.ExpectQuery("SELECT (.+) FROM scans").
				WithArgs(10).
				WillReturnRows(rows)

			scans, err := store.RecentScans(10)
			assert.NoError(t, err)
			assert.Len(t, scans, 2)
			assert.Equal(t, "/tmp/b", scans[0].Path)
			assert.Equal(t, finding.RiskMedium, scans[0].RiskLevel)
			assert.Equal(t, int64(1), scans[1].ID)
		})
	})

	t.Run("Query Error", func(t *testing.T) {
		withMockStore(t, func(store *PostgresStore, mock sqlmock.Sqlmock) {
			mock.ExpectQuery("SELECT (.+) FROM scans").
				WillReturnError(errors.New("relation does not exist"))

			_, err := store.RecentScans(10)
			assert.Error(t, err)
		})
	})
}
