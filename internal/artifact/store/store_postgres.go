package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eshbtc/travelcheck-sub000/internal/artifact"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/tx"
)

// Postgres persists artifact descriptors. Inserts respect an ambient
// transaction so registration and its audit row commit together.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const insertArtifactQuery = `
	INSERT INTO artifacts
		(id, user_id, filename, size_bytes, checksum, source_url, content_type, source_kind, registered_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (s *Postgres) Insert(ctx context.Context, a artifact.Artifact) error {
	q := tx.Within(ctx, s.db)
	_, err := q.ExecContext(ctx, insertArtifactQuery,
		a.ID.String(),
		a.UserID.String(),
		a.Filename,
		a.SizeBytes,
		a.Checksum,
		a.SourceURL,
		a.ContentType,
		a.SourceKind.String(),
		a.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

const selectArtifactColumns = `
	id, user_id, filename, size_bytes, checksum, source_url, content_type, source_kind, registered_at
`

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID, artifactID id.ArtifactID) (*artifact.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectArtifactColumns+` FROM artifacts WHERE id = $1 AND user_id = $2`,
		artifactID.String(), userID.String(),
	)
	a, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find artifact: %w", err)
	}
	return a, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]artifact.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectArtifactColumns+` FROM artifacts WHERE user_id = $1 ORDER BY registered_at DESC, id`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []artifact.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

func (s *Postgres) Delete(ctx context.Context, userID id.UserID, artifactID id.ArtifactID) error {
	q := tx.Within(ctx, s.db)
	res, err := q.ExecContext(ctx,
		`DELETE FROM artifacts WHERE id = $1 AND user_id = $2`,
		artifactID.String(), userID.String(),
	)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete artifact rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanArtifact(row scannable) (*artifact.Artifact, error) {
	var (
		rawID     string
		rawUserID string
		rawKind   string
		a         artifact.Artifact
	)
	err := row.Scan(
		&rawID,
		&rawUserID,
		&a.Filename,
		&a.SizeBytes,
		&a.Checksum,
		&a.SourceURL,
		&a.ContentType,
		&rawKind,
		&a.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}

	if a.ID, err = id.ParseArtifactID(rawID); err != nil {
		return nil, err
	}
	if a.UserID, err = id.ParseUserID(rawUserID); err != nil {
		return nil, err
	}
	if a.SourceKind, err = id.ParseSourceKind(rawKind); err != nil {
		return nil, err
	}
	return &a, nil
}

type scannable interface {
	Scan(dest ...any) error
}
