package evidence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	evidencemetrics "github.com/eshbtc/travelcheck-sub000/internal/evidence/metrics"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

const defaultMaxBatchSize = 500

// Store persists evidence records. Swap with concrete storage without
// touching the service.
type Store interface {
	Insert(ctx context.Context, records []EvidenceRecord) error
	FindByID(ctx context.Context, userID id.UserID, evidenceID id.EvidenceID) (*EvidenceRecord, error)
	List(ctx context.Context, q ListQuery) ([]EvidenceRecord, error)
	ListForRange(ctx context.Context, userID id.UserID, from, to time.Time) ([]EvidenceRecord, error)
}

// AuditPublisher records evidence lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SnapshotInvalidator drops cached presence calendars after evidence
// changes so reads reflect their own writes.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, userID id.UserID) error
}

// TxRunner executes fn within a transactional boundary so an insert and its
// audit outbox row commit together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Dispute is a user's counter-claim against an evidence record. Country is
// optional; when present it asserts where the user actually was.
type Dispute struct {
	Country string
	Note    string
}

// Service orchestrates evidence ingest and the confirm/dispute lifecycle.
type Service struct {
	store      Store
	normalizer *Normalizer
	tx         TxRunner
	logger     *slog.Logger
	metrics    *evidencemetrics.Metrics
	audit      AuditPublisher
	snapshots  SnapshotInvalidator
	maxBatch   int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *evidencemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithSnapshotInvalidator(inv SnapshotInvalidator) Option {
	return func(s *Service) { s.snapshots = inv }
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, normalizer *Normalizer, opts ...Option) *Service {
	s := &Service{
		store:      store,
		normalizer: normalizer,
		tx:         passthroughTx{},
		maxBatch:   defaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest normalizes and persists a batch of adapter records. Bad records are
// rejected individually and reported back; the rest proceed. The insert and
// its audit event commit in one transaction.
func (s *Service) Ingest(ctx context.Context, userID id.UserID, batch []SourceRecord) (BatchResult, error) {
	if userID.IsNil() {
		return BatchResult{}, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if len(batch) == 0 {
		return BatchResult{}, dErrors.New(dErrors.CodeValidation, "records array must not be empty")
	}
	if len(batch) > s.maxBatch {
		return BatchResult{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("batch exceeds maximum size of %d records", s.maxBatch))
	}

	start := time.Now()
	s.metrics.ObserveBatchSize(len(batch))

	result := s.normalizer.Normalize(userID, batch, requestcontext.Now(ctx))

	if len(result.Accepted) > 0 {
		err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.store.Insert(txCtx, result.Accepted); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist evidence batch")
			}
			return s.emitAudit(txCtx, audit.Event{
				UserID:       userID,
				Subject:      userID.String(),
				Action:       string(audit.EventEvidenceIngested),
				ResourceType: "evidence",
				Reason:       fmt.Sprintf("accepted %d of %d records", len(result.Accepted), len(batch)),
				ActorID:      actorFrom(ctx),
			})
		})
		if err != nil {
			return BatchResult{}, err
		}
		s.invalidateSnapshot(ctx, userID)
	}

	for _, failure := range result.Rejected {
		s.metrics.IncrementRejected(failure.Field)
	}
	if len(result.Rejected) > 0 {
		// Rejections are operational noise, not a compliance action; a
		// failed emit must not fail the ingest.
		if err := s.emitAudit(ctx, audit.Event{
			UserID:       userID,
			Subject:      userID.String(),
			Action:       string(audit.EventEvidenceRejected),
			ResourceType: "evidence",
			Reason:       fmt.Sprintf("rejected %d of %d records", len(result.Rejected), len(batch)),
			ActorID:      actorFrom(ctx),
		}); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to emit rejection audit event", "error", err)
		}
	}

	s.countIngested(result.Accepted)
	s.metrics.ObserveIngestLatency(time.Since(start))
	return result, nil
}

// List returns one page of the user's evidence, newest ingest first.
func (s *Service) List(ctx context.Context, q ListQuery) (Page, error) {
	if q.UserID.IsNil() {
		return Page{}, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	items, err := s.store.List(ctx, q)
	if err != nil {
		return Page{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evidence")
	}
	return Page{
		Items:   items,
		Limit:   q.Limit,
		Offset:  q.Offset,
		HasMore: len(items) == q.Limit,
	}, nil
}

// Confirm appends a manual corroboration of an existing record. The original
// is never mutated; the new record raises the day's combined confidence.
func (s *Service) Confirm(ctx context.Context, userID id.UserID, evidenceID id.EvidenceID, note string) (*EvidenceRecord, error) {
	original, err := s.findOwned(ctx, userID, evidenceID)
	if err != nil {
		return nil, err
	}

	derived, err := s.deriveManualRecord(userID, original, original.Country, nil, "confirmation", note, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Insert(txCtx, []EvidenceRecord{*derived}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist confirmation")
		}
		return s.emitAudit(txCtx, audit.Event{
			UserID:       userID,
			Subject:      userID.String(),
			Action:       string(audit.EventEvidenceConfirmed),
			ResourceType: "evidence",
			ResourceID:   evidenceID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSnapshot(ctx, userID)
	return derived, nil
}

// Dispute appends a manual counter-claim against an existing record. With a
// corrected country the claim competes at manual confidence; without one it
// is recorded at zero confidence so it marks the dispute without
// corroborating the disputed claim.
func (s *Service) Dispute(ctx context.Context, userID id.UserID, evidenceID id.EvidenceID, dispute Dispute) (*EvidenceRecord, error) {
	original, err := s.findOwned(ctx, userID, evidenceID)
	if err != nil {
		return nil, err
	}

	country := dispute.Country
	var confidence *float64
	if country == "" || sameCountry(country, original.Country) {
		country = original.Country
		zero := 0.0
		confidence = &zero
	}

	derived, err := s.deriveManualRecord(userID, original, country, confidence, "dispute", dispute.Note, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Insert(txCtx, []EvidenceRecord{*derived}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist dispute")
		}
		return s.emitAudit(txCtx, audit.Event{
			UserID:       userID,
			Subject:      userID.String(),
			Action:       string(audit.EventEvidenceDisputed),
			ResourceType: "evidence",
			ResourceID:   evidenceID.String(),
			Reason:       dispute.Note,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSnapshot(ctx, userID)
	return derived, nil
}

// ListForRange returns the full evidence set for reconciliation input.
func (s *Service) ListForRange(ctx context.Context, userID id.UserID, from, to time.Time) ([]EvidenceRecord, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	records, err := s.store.ListForRange(ctx, userID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence set")
	}
	return records, nil
}

func (s *Service) findOwned(ctx context.Context, userID id.UserID, evidenceID id.EvidenceID) (*EvidenceRecord, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if evidenceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence id is required")
	}
	original, err := s.store.FindByID(ctx, userID, evidenceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evidence record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence record")
	}
	return original, nil
}

// deriveManualRecord routes a confirmation or dispute through the same
// normalization gate as adapter input, so derived records honor every
// invariant the normalizer enforces.
func (s *Service) deriveManualRecord(userID id.UserID, original *EvidenceRecord, country string, confidence *float64, action, note string, now time.Time) (*EvidenceRecord, error) {
	attributes := map[string]string{
		"action":       action,
		"derived_from": original.ID.String(),
	}
	if note != "" {
		attributes["note"] = note
	}
	result := s.normalizer.Normalize(userID, []SourceRecord{{
		SourceKind:    id.SourceManual.String(),
		Date:          original.Date.Format("2006-01-02"),
		Country:       country,
		Confidence:    confidence,
		EvidenceRefs:  []string{original.ID.String()},
		RawAttributes: attributes,
	}}, now)
	if len(result.Accepted) != 1 {
		return nil, dErrors.New(dErrors.CodeInternal, "failed to derive manual record")
	}
	derived := result.Accepted[0]
	return &derived, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) error {
	if s.audit == nil {
		return nil
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	return s.audit.Emit(ctx, event)
}

func (s *Service) invalidateSnapshot(ctx context.Context, userID id.UserID) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Invalidate(ctx, userID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to invalidate presence snapshot",
			"user_id", userID,
			"error", err,
		)
	}
}

func (s *Service) countIngested(accepted []EvidenceRecord) {
	counts := map[id.SourceKind]int{}
	for _, rec := range accepted {
		counts[rec.SourceKind]++
	}
	for kind, n := range counts {
		s.metrics.IncrementIngested(kind.String(), n)
	}
}

func actorFrom(ctx context.Context) string {
	if adapterID := requestcontext.AdapterID(ctx); !adapterID.IsNil() {
		return adapterID.String()
	}
	return ""
}

func sameCountry(a, b string) bool {
	resolvedA, _ := resolveCountry(a)
	resolvedB, _ := resolveCountry(b)
	return resolvedA == resolvedB
}

// passthroughTx satisfies TxRunner without a database; memory stores are
// individually synchronized.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
