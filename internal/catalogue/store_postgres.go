package catalogue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"sahaya/pkg/domain"
	"sahaya/pkg/platform/sentinel"
)

// PostgresStore persists scheme versions in PostgreSQL, keyed
// (scheme_id, version). Rows are insert-only; the primary key makes the
// version race first-writer-wins at the database level.
//
// Schema:
//
//	CREATE TABLE scheme_versions (
//	    scheme_id  TEXT        NOT NULL,
//	    version    BIGINT      NOT NULL,
//	    status     TEXT        NOT NULL,
//	    record     JSONB       NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (scheme_id, version)
//	);
//
//	CREATE TABLE scheme_flags (
//	    id          BIGSERIAL PRIMARY KEY,
//	    scheme_id   TEXT        NOT NULL,
//	    description TEXT        NOT NULL,
//	    flagged_at  TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func (s *PostgresStore) GetCurrent(ctx context.Context, id domain.SchemeID, includeInactive bool) (*SchemeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT record FROM scheme_versions
		WHERE scheme_id = $1
		ORDER BY version DESC
		LIMIT 1
	`, id.String())
	record, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	if record.Status == StatusInactive && !includeInactive {
		return nil, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *PostgresStore) GetVersion(ctx context.Context, id domain.SchemeID, version int64) (*SchemeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT record FROM scheme_versions
		WHERE scheme_id = $1 AND version = $2
	`, id.String(), version)
	return scanRecord(row)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*SchemeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (scheme_id) record, status
		FROM scheme_versions
		ORDER BY scheme_id, version DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list active schemes: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var records []*SchemeRecord
	for rows.Next() {
		var raw []byte
		var status string
		if err := rows.Scan(&raw, &status); err != nil {
			return nil, fmt.Errorf("scan scheme row: %w", err)
		}
		if Status(status) != StatusActive {
			continue
		}
		var record SchemeRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode scheme record: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheme rows: %w: %w", sentinel.ErrUnavailable, err)
	}
	sortSchemes(records)
	return records, nil
}

func (s *PostgresStore) Append(ctx context.Context, record *SchemeRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode scheme record: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheme_versions (scheme_id, version, status, record, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, record.ID.String(), record.Version, string(record.Status), raw, record.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert scheme version: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) AppendFlag(ctx context.Context, id domain.SchemeID, flag Flag) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM scheme_versions WHERE scheme_id = $1)
	`, id.String()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check scheme exists: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheme_flags (scheme_id, description, flagged_at)
		VALUES ($1, $2, $3)
	`, id.String(), flag.Description, flag.FlaggedAt)
	if err != nil {
		return fmt.Errorf("insert scheme flag: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) ListFlags(ctx context.Context, id domain.SchemeID) ([]Flag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT description, flagged_at FROM scheme_flags
		WHERE scheme_id = $1
		ORDER BY id
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list scheme flags: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var flags []Flag
	for rows.Next() {
		var f Flag
		if err := rows.Scan(&f.Description, &f.FlaggedAt); err != nil {
			return nil, fmt.Errorf("scan flag row: %w", err)
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

func scanRecord(row *sql.Row) (*SchemeRecord, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("read scheme version: %w: %w", sentinel.ErrUnavailable, err)
	}
	var record SchemeRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode scheme record: %w", err)
	}
	return &record, nil
}
