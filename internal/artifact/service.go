package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	artifactmetrics "github.com/eshbtc/travelcheck-sub000/internal/artifact/metrics"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

// Store persists artifact descriptors.
type Store interface {
	Insert(ctx context.Context, a Artifact) error
	FindByID(ctx context.Context, userID id.UserID, artifactID id.ArtifactID) (*Artifact, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]Artifact, error)
	Delete(ctx context.Context, userID id.UserID, artifactID id.ArtifactID) error
}

// AuditPublisher records artifact lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner executes fn within a transactional boundary.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RegisterInput is the descriptor a caller registers ahead of upload.
type RegisterInput struct {
	Filename    string
	SizeBytes   int64
	Checksum    string
	SourceURL   string
	ContentType string
	SourceKind  id.SourceKind
}

// Service registers artifact descriptors and runs duplicate detection over
// them. Detection is advisory; nothing is ever deleted automatically.
type Service struct {
	store    Store
	detector *Detector
	tx       TxRunner
	logger   *slog.Logger
	metrics  *artifactmetrics.Metrics
	audit    AuditPublisher
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *artifactmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

// NewService constructs a Service.
func NewService(store Store, detector *Detector, opts ...Option) *Service {
	s := &Service{
		store:    store,
		detector: detector,
		tx:       passthroughTx{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register stores a descriptor and scans it against the user's existing
// artifacts. Returned groups all involve the new artifact; pre-existing
// duplicate clusters are not re-reported on every upload.
func (s *Service) Register(ctx context.Context, userID id.UserID, input RegisterInput) (*Artifact, []DuplicateGroup, error) {
	if userID.IsNil() {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if input.Filename == "" {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "filename is required")
	}

	existing, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load existing artifacts")
	}

	created := Artifact{
		ID:           id.NewArtifactID(),
		UserID:       userID,
		Filename:     input.Filename,
		SizeBytes:    input.SizeBytes,
		Checksum:     input.Checksum,
		SourceURL:    input.SourceURL,
		ContentType:  input.ContentType,
		SourceKind:   input.SourceKind,
		RegisteredAt: requestcontext.Now(ctx),
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Insert(txCtx, created); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist artifact")
		}
		return s.emitAudit(txCtx, audit.Event{
			UserID:       userID,
			Subject:      userID.String(),
			Action:       string(audit.EventArtifactRegistered),
			ResourceType: "artifact",
			ResourceID:   created.ID.String(),
		})
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.IncrementRegistered()

	groups := s.detectForNew(existing, created)
	if len(groups) > 0 {
		s.countGroups(groups)
		if err := s.emitAudit(ctx, audit.Event{
			UserID:       userID,
			Subject:      userID.String(),
			Action:       string(audit.EventDuplicateFlagged),
			ResourceType: "artifact",
			ResourceID:   created.ID.String(),
			Reason:       fmt.Sprintf("%d duplicate group(s) involve this artifact", len(groups)),
		}); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to emit duplicate audit event", "error", err)
		}
	}
	return &created, groups, nil
}

// Scan runs detection over a caller-supplied descriptor set without touching
// storage.
func (s *Service) Scan(ctx context.Context, userID id.UserID, items []Descriptor) ([]DuplicateGroup, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if len(items) < 2 {
		return nil, dErrors.New(dErrors.CodeValidation, "scan requires at least two items")
	}
	s.metrics.ObserveScanItems(len(items))
	groups := s.detector.Detect(items)
	s.countGroups(groups)
	return groups, nil
}

// List returns every descriptor the user has registered, newest first.
func (s *Service) List(ctx context.Context, userID id.UserID) ([]Artifact, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	artifacts, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list artifacts")
	}
	return artifacts, nil
}

// Delete removes one descriptor. The blob it described is external and
// untouched.
func (s *Service) Delete(ctx context.Context, userID id.UserID, artifactID id.ArtifactID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if artifactID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "artifact id is required")
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Delete(txCtx, userID, artifactID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "artifact not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete artifact")
		}
		return s.emitAudit(txCtx, audit.Event{
			UserID:       userID,
			Subject:      userID.String(),
			Action:       string(audit.EventArtifactDeleted),
			ResourceType: "artifact",
			ResourceID:   artifactID.String(),
		})
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementDeleted()
	return nil
}

// detectForNew scans existing+new and keeps only groups containing the new
// artifact.
func (s *Service) detectForNew(existing []Artifact, created Artifact) []DuplicateGroup {
	items := make([]Descriptor, 0, len(existing)+1)
	for _, a := range existing {
		items = append(items, DescriptorOf(a))
	}
	items = append(items, DescriptorOf(created))

	var involved []DuplicateGroup
	for _, group := range s.detector.Detect(items) {
		for _, itemID := range group.ItemIDs {
			if itemID == created.ID.String() {
				involved = append(involved, group)
				break
			}
		}
	}
	return involved
}

func (s *Service) countGroups(groups []DuplicateGroup) {
	counts := map[MatchKind]int{}
	for _, group := range groups {
		counts[group.Kind]++
	}
	for kind, n := range counts {
		s.metrics.IncrementDuplicateGroups(string(kind), n)
	}
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

// passthroughTx satisfies TxRunner without a database.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
