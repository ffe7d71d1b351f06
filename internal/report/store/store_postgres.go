package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eshbtc/travelcheck-sub000/internal/report"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/tx"
)

// Postgres persists composed reports. The full report is stored as a JSONB
// document alongside the columns list/filter queries need; the document is
// authoritative on read. Writes respect an ambient transaction so a report
// row and its audit row commit together.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const insertReportQuery = `
	INSERT INTO reports
		(id, user_id, report_type, title, status, generated_at, document)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (s *Postgres) Insert(ctx context.Context, r report.Report) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report document: %w", err)
	}
	q := tx.Within(ctx, s.db)
	_, err = q.ExecContext(ctx, insertReportQuery,
		r.ID.String(),
		r.UserID.String(),
		string(r.Type),
		r.Title,
		string(r.Status),
		r.GeneratedAt,
		doc,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID, reportID id.ReportID) (*report.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document FROM reports WHERE id = $1 AND user_id = $2`,
		reportID.String(), userID.String(),
	)
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	return decodeReport(doc)
}

func (s *Postgres) List(ctx context.Context, q report.ListQuery) ([]report.Report, error) {
	query := `SELECT document FROM reports WHERE user_id = $1`
	args := []any{q.UserID.String()}
	if q.Type != "" {
		args = append(args, string(q.Type))
		query += fmt.Sprintf(" AND report_type = $%d", len(args))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += ` ORDER BY generated_at DESC, id`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []report.Report
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r, err := decodeReport(doc)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

func (s *Postgres) Delete(ctx context.Context, userID id.UserID, reportID id.ReportID) error {
	q := tx.Within(ctx, s.db)
	res, err := q.ExecContext(ctx,
		`DELETE FROM reports WHERE id = $1 AND user_id = $2`,
		reportID.String(), userID.String(),
	)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func decodeReport(doc []byte) (*report.Report, error) {
	var r report.Report
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report document: %w", err)
	}
	return &r, nil
}
