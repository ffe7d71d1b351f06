package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/eshbtc/travelcheck-sub000/internal/adapter"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/tx"
)

// Postgres persists adapter clients. Name uniqueness is enforced by the
// unique index on lower(name).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, adp *adapter.Adapter) error {
	q := tx.Within(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO adapter_clients (id, name, key_hash, status, created_by, created_at, updated_at, rotated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		adp.ID.String(),
		adp.Name,
		adp.KeyHash,
		string(adp.Status),
		nullableUser(adp.CreatedBy),
		adp.CreatedAt,
		adp.UpdatedAt,
		adp.RotatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert adapter client: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, adp *adapter.Adapter) error {
	q := tx.Within(ctx, s.db)
	result, err := q.ExecContext(ctx, `
		UPDATE adapter_clients
		SET name = $2, key_hash = $3, status = $4, updated_at = $5, rotated_at = $6
		WHERE id = $1`,
		adp.ID.String(),
		adp.Name,
		adp.KeyHash,
		string(adp.Status),
		adp.UpdatedAt,
		adp.RotatedAt,
	)
	if err != nil {
		return fmt.Errorf("update adapter client: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update adapter client: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, adapterID id.AdapterID) (*adapter.Adapter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, key_hash, status, created_by, created_at, updated_at, rotated_at
		FROM adapter_clients WHERE id = $1`,
		adapterID.String(),
	)

	var (
		adp       adapter.Adapter
		rawID     string
		status    string
		createdBy sql.NullString
		rotatedAt sql.NullTime
	)
	err := row.Scan(&rawID, &adp.Name, &adp.KeyHash, &status, &createdBy, &adp.CreatedAt, &adp.UpdatedAt, &rotatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find adapter client: %w", err)
	}

	adp.ID, err = id.ParseAdapterID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse adapter id: %w", err)
	}
	adp.Status = adapter.Status(status)
	if createdBy.Valid {
		if adp.CreatedBy, err = id.ParseUserID(createdBy.String); err != nil {
			return nil, fmt.Errorf("parse adapter creator: %w", err)
		}
	}
	if rotatedAt.Valid {
		t := rotatedAt.Time
		adp.RotatedAt = &t
	}
	return &adp, nil
}

func nullableUser(userID id.UserID) any {
	if userID.IsNil() {
		return nil
	}
	return userID.String()
}
