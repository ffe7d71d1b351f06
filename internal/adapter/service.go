package adapter

import (
	"context"
	"errors"
	"log/slog"

	adaptermetrics "github.com/eshbtc/travelcheck-sub000/internal/adapter/metrics"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
	"github.com/eshbtc/travelcheck-sub000/pkg/secrets"
)

// Store persists adapter client records.
type Store interface {
	Create(ctx context.Context, adapter *Adapter) error
	Update(ctx context.Context, adapter *Adapter) error
	FindByID(ctx context.Context, adapterID id.AdapterID) (*Adapter, error)
}

// AuditPublisher records adapter lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner executes fn within a transactional boundary so a client row and
// its audit outbox row commit together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages adapter client registration, key rotation, and the key
// verification choke point used by the ingest middleware.
type Service struct {
	store   Store
	tx      TxRunner
	logger  *slog.Logger
	metrics *adaptermetrics.Metrics
	audit   AuditPublisher
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *adaptermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		tx:    passthroughTx{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an adapter client and returns it together with the
// cleartext API key. The key is not recoverable afterwards.
func (s *Service) Register(ctx context.Context, name string) (*Adapter, string, error) {
	secret, err := secrets.Generate()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate adapter key")
	}
	keyHash, err := secrets.Hash(secret)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash adapter key")
	}

	adp, err := NewAdapter(id.NewAdapterID(), name, keyHash, requestcontext.UserID(ctx), requestcontext.Now(ctx))
	if err != nil {
		return nil, "", err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, adp); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "adapter name must be unique")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create adapter client")
		}
		return s.emitAudit(txCtx, audit.Event{
			UserID:       adp.CreatedBy,
			Subject:      adp.CreatedBy.String(),
			Action:       string(audit.EventAdapterRegistered),
			ResourceType: "adapter",
			ResourceID:   adp.ID.String(),
			Reason:       adp.Name,
		})
	})
	if err != nil {
		return nil, "", err
	}

	s.metrics.IncrementRegistered()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "adapter client registered",
			"adapter_id", adp.ID,
			"name", adp.Name,
		)
	}
	return adp, ComposeKey(adp.ID, secret), nil
}

// RotateKey replaces the client's API key and returns the new cleartext key.
// The old key stops verifying immediately.
func (s *Service) RotateKey(ctx context.Context, adapterID id.AdapterID) (*Adapter, string, error) {
	if adapterID.IsNil() {
		return nil, "", dErrors.New(dErrors.CodeValidation, "adapter id is required")
	}
	adp, err := s.store.FindByID(ctx, adapterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.New(dErrors.CodeNotFound, "adapter client not found")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load adapter client")
	}

	secret, err := secrets.Generate()
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate rotated key")
	}
	adp.KeyHash, err = secrets.Hash(secret)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash rotated key")
	}

	now := requestcontext.Now(ctx)
	adp.UpdatedAt = now
	adp.RotatedAt = &now

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Update(txCtx, adp); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist rotated key")
		}
		return s.emitAudit(txCtx, audit.Event{
			UserID:       requestcontext.UserID(txCtx),
			Subject:      requestcontext.UserID(txCtx).String(),
			Action:       string(audit.EventAdapterKeyRotated),
			ResourceType: "adapter",
			ResourceID:   adp.ID.String(),
		})
	})
	if err != nil {
		return nil, "", err
	}

	s.metrics.IncrementRotated()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "adapter key rotated",
			"adapter_id", adp.ID,
		)
	}
	return adp, ComposeKey(adp.ID, secret), nil
}

// VerifyKey is the authentication choke point for adapter requests. All
// verification failures surface as unauthorized so callers cannot probe
// which adapter IDs exist.
func (s *Service) VerifyKey(ctx context.Context, rawKey string) (*Adapter, error) {
	adapterID, secret, err := SplitKey(rawKey)
	if err != nil {
		s.metrics.IncrementVerification("malformed")
		return nil, err
	}

	adp, err := s.store.FindByID(ctx, adapterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementVerification("unknown")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid adapter key")
		}
		s.metrics.IncrementVerification("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load adapter client")
	}
	if !adp.IsActive() {
		s.metrics.IncrementVerification("inactive")
		return nil, dErrors.New(dErrors.CodeForbidden, "adapter client is inactive")
	}
	if err := secrets.Verify(secret, adp.KeyHash); err != nil {
		s.metrics.IncrementVerification("mismatch")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid adapter key")
	}

	s.metrics.IncrementVerification("ok")
	return adp, nil
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

// passthroughTx satisfies TxRunner without a database; memory stores are
// individually synchronized.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
