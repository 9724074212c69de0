package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists assessments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the risk_assessments table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_assessments (
			id               VARCHAR(40) PRIMARY KEY,
			transaction_id   VARCHAR(40) NOT NULL UNIQUE,
			user_id          VARCHAR(40) NOT NULL,
			risk_score       SMALLINT NOT NULL CHECK (risk_score >= 0 AND risk_score <= 100),
			risk_level       VARCHAR(10) NOT NULL CHECK (risk_level IN ('low', 'medium', 'high')),
			flags            TEXT[] NOT NULL DEFAULT '{}',
			large_amount     BOOLEAN NOT NULL DEFAULT FALSE,
			high_velocity    BOOLEAN NOT NULL DEFAULT FALSE,
			geo_mismatch     BOOLEAN NOT NULL DEFAULT FALSE,
			unusual_time     BOOLEAN NOT NULL DEFAULT FALSE,
			duplicate        BOOLEAN NOT NULL DEFAULT FALSE,
			analysis_details JSONB NOT NULL DEFAULT '{}',
			evaluated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_user
			ON risk_assessments (user_id, evaluated_at DESC);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_high
			ON risk_assessments (evaluated_at DESC) WHERE risk_level = 'high';
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, assessment *Assessment) error {
	detailsJSON, err := json.Marshal(assessment.AnalysisDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (
			id, transaction_id, user_id, risk_score, risk_level, flags,
			large_amount, high_velocity, geo_mismatch, unusual_time, duplicate,
			analysis_details, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		assessment.ID,
		assessment.TransactionID,
		assessment.UserID,
		assessment.RiskScore,
		string(assessment.RiskLevel),
		pq.Array(assessment.Flags),
		assessment.LargeAmount,
		assessment.HighVelocity,
		assessment.GeoMismatch,
		assessment.UnusualTime,
		assessment.Duplicate,
		detailsJSON,
		assessment.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByTransaction(ctx context.Context, transactionID string) (*Assessment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, user_id, risk_score, risk_level, flags,
		       large_amount, high_velocity, geo_mismatch, unusual_time, duplicate,
		       analysis_details, evaluated_at
		FROM risk_assessments
		WHERE transaction_id = $1
	`, transactionID)

	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssessmentNotFound
	}
	return a, err
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Assessment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, user_id, risk_score, risk_level, flags,
		       large_amount, high_velocity, geo_mismatch, unusual_time, duplicate,
		       analysis_details, evaluated_at
		FROM risk_assessments
		WHERE user_id = $1
		ORDER BY evaluated_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*Assessment, error) {
	var (
		a           Assessment
		level       string
		detailsJSON []byte
	)
	if err := row.Scan(
		&a.ID, &a.TransactionID, &a.UserID, &a.RiskScore, &level, pq.Array(&a.Flags),
		&a.LargeAmount, &a.HighVelocity, &a.GeoMismatch, &a.UnusualTime, &a.Duplicate,
		&detailsJSON, &a.EvaluatedAt,
	); err != nil {
		return nil, err
	}
	a.RiskLevel = Level(level)
	a.AnalysisDetails = make(map[string]float64)
	_ = json.Unmarshal(detailsJSON, &a.AnalysisDetails)
	return &a, nil
}
