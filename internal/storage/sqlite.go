// Package storage keeps the review history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"nutrilabel/internal/review"
)

// DefaultListLimit applies when ListFilter.Limit is not positive.
const DefaultListLimit = 50

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by GetReport for an unknown id.
var ErrNotFound = errors.New("review not found")

// ReviewSummary is one row of the history listing.
type ReviewSummary struct {
	ID              string    `json:"id"`
	Product         string    `json:"product"`
	Batch           string    `json:"batch"`
	Rating          string    `json:"rating"`
	ComplianceScore int       `json:"compliance_score"`
	IssueCount      int       `json:"issue_count"`
	Filename        string    `json:"filename,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListFilter narrows ListReports.
type ListFilter struct {
	Product string
	Rating  string
	Since   time.Time
	Limit   int
}

// SQLiteStorage is the review history backed by a sqlite file.
type SQLiteStorage struct {
	db *sql.DB
}

var _ review.History = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens dbPath and creates the schema when missing.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS reviews (
        id TEXT PRIMARY KEY,
        product TEXT NOT NULL,
        batch TEXT NOT NULL,
        rating TEXT NOT NULL,
        compliance_score INTEGER NOT NULL,
        filename TEXT NOT NULL,
        created_at TEXT NOT NULL,
        report TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS review_issues (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        review_id TEXT NOT NULL,
        severity TEXT NOT NULL,
        ingredient TEXT NOT NULL,
        issue TEXT NOT NULL,
        FOREIGN KEY (review_id) REFERENCES reviews(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at);
    CREATE INDEX IF NOT EXISTS idx_review_issues_review_id ON review_issues(review_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveReport stores report and its issues. Saving the same id again
// replaces the earlier row.
func (s *SQLiteStorage) SaveReport(ctx context.Context, report *review.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	var rating string
	var score int
	var issues []issueRow
	if c := report.Compliance; c != nil {
		rating = string(c.OverallRating)
		score = c.ComplianceScore
		for _, is := range c.Issues {
			issues = append(issues, issueRow{string(is.Severity), string(is.Ingredient), is.Issue})
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM review_issues WHERE review_id = ?`, report.ID); err != nil {
		return fmt.Errorf("failed to clear issues: %w", err)
	}

	reviewQuery := `
        INSERT OR REPLACE INTO reviews (id, product, batch, rating, compliance_score, filename, created_at, report)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err = tx.ExecContext(ctx, reviewQuery,
		report.ID, report.Meta.Product, report.Meta.Batch, rating, score,
		report.Debug.Filename, report.CreatedAt.UTC().Format(timeLayout), string(raw))
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	issueQuery := `
        INSERT INTO review_issues (review_id, severity, ingredient, issue)
        VALUES (?, ?, ?, ?)
    `
	for _, is := range issues {
		if _, err := tx.ExecContext(ctx, issueQuery, report.ID, is.severity, is.ingredient, is.text); err != nil {
			return fmt.Errorf("failed to insert issue: %w", err)
		}
	}

	return tx.Commit()
}

type issueRow struct {
	severity   string
	ingredient string
	text       string
}

// GetReport loads a stored report by id.
func (s *SQLiteStorage) GetReport(ctx context.Context, id string) (*review.Report, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM reviews WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query review: %w", err)
	}

	var report review.Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("failed to decode review %s: %w", id, err)
	}
	return &report, nil
}

// ListReports returns stored reviews, newest first.
func (s *SQLiteStorage) ListReports(ctx context.Context, filter ListFilter) ([]ReviewSummary, error) {
	query := `
        SELECT r.id, r.product, r.batch, r.rating, r.compliance_score, r.filename, r.created_at,
               (SELECT COUNT(*) FROM review_issues i WHERE i.review_id = r.id)
        FROM reviews r
        WHERE 1=1
    `
	args := []interface{}{}

	if filter.Product != "" {
		query += " AND r.product LIKE ?"
		args = append(args, "%"+filter.Product+"%")
	}
	if filter.Rating != "" {
		query += " AND r.rating = ?"
		args = append(args, filter.Rating)
	}
	if !filter.Since.IsZero() {
		query += " AND r.created_at >= ?"
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += " ORDER BY r.created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	out := []ReviewSummary{}
	for rows.Next() {
		var rs ReviewSummary
		var createdAtStr string
		err := rows.Scan(&rs.ID, &rs.Product, &rs.Batch, &rs.Rating, &rs.ComplianceScore,
			&rs.Filename, &createdAtStr, &rs.IssueCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if rs.CreatedAt, err = time.Parse(timeLayout, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}
