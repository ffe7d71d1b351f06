package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/tx"
)

// Postgres persists evidence records. Inserts respect an ambient transaction
// so ingest and its audit row commit together.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const insertRecordQuery = `
	INSERT INTO evidence_records
		(id, user_id, source_kind, date, country, low_confidence_country, confidence, evidence_refs, raw_attributes, ingested_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func (s *Postgres) Insert(ctx context.Context, records []evidence.EvidenceRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := tx.Within(ctx, s.db)
	for _, rec := range records {
		attrs, err := json.Marshal(attributesOrEmpty(rec.RawAttributes))
		if err != nil {
			return fmt.Errorf("marshal raw attributes: %w", err)
		}
		_, err = q.ExecContext(ctx, insertRecordQuery,
			rec.ID.String(),
			rec.UserID.String(),
			rec.SourceKind.String(),
			rec.Date,
			rec.Country,
			rec.LowConfidenceCountry,
			rec.Confidence,
			pq.Array(refsOrEmpty(rec.EvidenceRefs)),
			attrs,
			rec.IngestedAt,
		)
		if err != nil {
			return fmt.Errorf("insert evidence record: %w", err)
		}
	}
	return nil
}

const selectRecordColumns = `
	id, user_id, source_kind, date, country, low_confidence_country, confidence, evidence_refs, raw_attributes, ingested_at
`

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID, evidenceID id.EvidenceID) (*evidence.EvidenceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectRecordColumns+` FROM evidence_records WHERE id = $1 AND user_id = $2`,
		evidenceID.String(), userID.String(),
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) List(ctx context.Context, q evidence.ListQuery) ([]evidence.EvidenceRecord, error) {
	query := `SELECT ` + selectRecordColumns + ` FROM evidence_records WHERE user_id = $1`
	args := []any{q.UserID.String()}
	query, args = appendRangeClauses(query, args, q.From, q.To)
	query += ` ORDER BY ingested_at DESC, id`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return s.queryRecords(ctx, query, args...)
}

func (s *Postgres) ListForRange(ctx context.Context, userID id.UserID, from, to time.Time) ([]evidence.EvidenceRecord, error) {
	query := `SELECT ` + selectRecordColumns + ` FROM evidence_records WHERE user_id = $1`
	args := []any{userID.String()}
	query, args = appendRangeClauses(query, args, from, to)
	query += ` ORDER BY date, ingested_at`
	return s.queryRecords(ctx, query, args...)
}

func appendRangeClauses(query string, args []any, from, to time.Time) (string, []any) {
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	return query, args
}

func (s *Postgres) queryRecords(ctx context.Context, query string, args ...any) ([]evidence.EvidenceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evidence records: %w", err)
	}
	defer rows.Close()

	var records []evidence.EvidenceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evidence record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence records: %w", err)
	}
	return records, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*evidence.EvidenceRecord, error) {
	var (
		rawID     string
		rawUserID string
		rawKind   string
		rawRefs   pq.StringArray
		rawAttrs  []byte
		rec       evidence.EvidenceRecord
	)
	err := row.Scan(
		&rawID,
		&rawUserID,
		&rawKind,
		&rec.Date,
		&rec.Country,
		&rec.LowConfidenceCountry,
		&rec.Confidence,
		&rawRefs,
		&rawAttrs,
		&rec.IngestedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.ID, err = id.ParseEvidenceID(rawID); err != nil {
		return nil, err
	}
	if rec.UserID, err = id.ParseUserID(rawUserID); err != nil {
		return nil, err
	}
	if rec.SourceKind, err = id.ParseSourceKind(rawKind); err != nil {
		return nil, err
	}
	rec.Date = rec.Date.UTC()
	if len(rawRefs) > 0 {
		rec.EvidenceRefs = []string(rawRefs)
	}
	if len(rawAttrs) > 0 {
		attrs := map[string]string{}
		if err := json.Unmarshal(rawAttrs, &attrs); err != nil {
			return nil, fmt.Errorf("unmarshal raw attributes: %w", err)
		}
		if len(attrs) > 0 {
			rec.RawAttributes = attrs
		}
	}
	return &rec, nil
}

func refsOrEmpty(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}

func attributesOrEmpty(attributes map[string]string) map[string]string {
	if attributes == nil {
		return map[string]string{}
	}
	return attributes
}
