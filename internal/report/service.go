package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eshbtc/travelcheck-sub000/internal/presence"
	reportmetrics "github.com/eshbtc/travelcheck-sub000/internal/report/metrics"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/sentinel"
	"github.com/eshbtc/travelcheck-sub000/pkg/requestcontext"
)

const defaultListLimit = 50

// Store persists composed reports.
type Store interface {
	Insert(ctx context.Context, r Report) error
	FindByID(ctx context.Context, userID id.UserID, reportID id.ReportID) (*Report, error)
	List(ctx context.Context, q ListQuery) ([]Report, error)
	Delete(ctx context.Context, userID id.UserID, reportID id.ReportID) error
}

// CalendarSource supplies the reconciled calendar and its insights. The
// presence service satisfies this.
type CalendarSource interface {
	Calendar(ctx context.Context, userID id.UserID, from, to time.Time, countries []string) ([]presence.PresenceDay, error)
	Insights(ctx context.Context, userID id.UserID, from, to time.Time) (presence.Insights, error)
}

// AuditPublisher records report lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner executes fn within a transactional boundary so a report row and
// its audit outbox row commit together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// GenerateInput is a validated generation request.
type GenerateInput struct {
	Type        Type
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Countries   []string
	// Format is the preferred export format, remembered on the report and
	// used when an export request names none.
	Format string
}

// GenerateResult returns the composed report together with its persistence
// outcome. Persisted false means the report was computed but could not be
// saved; the caller still gets the data and can retry via regenerate.
type GenerateResult struct {
	Report    Report
	Persisted bool
	Warnings  []string
}

// Service orchestrates report generation, retrieval and export.
type Service struct {
	store     Store
	calendars CalendarSource
	composer  *Composer
	exporter  *Exporter
	tx        TxRunner
	logger    *slog.Logger
	metrics   *reportmetrics.Metrics
	audit     AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *reportmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

// NewService constructs a Service.
func NewService(store Store, calendars CalendarSource, opts ...Option) *Service {
	s := &Service{
		store:     store,
		calendars: calendars,
		composer:  NewComposer(),
		exporter:  NewExporter(),
		tx:        passthroughTx{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate fetches the calendar and its insights concurrently, composes the
// report and persists it. Composition succeeding but the save failing is not
// an error: the report is returned with Persisted false and a warning, since
// the computation is already paid for.
func (s *Service) Generate(ctx context.Context, userID id.UserID, input GenerateInput) (GenerateResult, error) {
	if err := validateGenerateInput(userID, input); err != nil {
		return GenerateResult{}, err
	}
	started := time.Now()

	var (
		days     []presence.PresenceDay
		insights presence.Insights
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		days, err = s.calendars.Calendar(gctx, userID, input.StartDate, input.EndDate, nil)
		return err
	})
	g.Go(func() error {
		var err error
		insights, err = s.calendars.Insights(gctx, userID, input.StartDate, input.EndDate)
		return err
	})
	if err := g.Wait(); err != nil {
		return GenerateResult{}, err
	}

	composed, err := s.composer.Compose(days, ComposeParams{
		Type:        input.Type,
		Title:       input.Title,
		Description: input.Description,
		Range: DateRange{
			Start: midnight(input.StartDate),
			End:   midnight(input.EndDate),
		},
		Countries: input.Countries,
		Raw:       parametersFrom(input),
	}, requestcontext.Now(ctx))
	if err != nil {
		return GenerateResult{}, err
	}
	composed.ID = id.NewReportID()
	composed.UserID = userID

	result := GenerateResult{
		Report:    composed,
		Persisted: true,
		Warnings:  insightWarnings(insights),
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Insert(txCtx, composed); err != nil {
			return fmt.Errorf("persist report: %w", err)
		}
		return s.emitAudit(txCtx, audit.Event{
			UserID:       userID,
			Subject:      userID.String(),
			Action:       string(audit.EventReportGenerated),
			ResourceType: "report",
			ResourceID:   composed.ID.String(),
			Reason: fmt.Sprintf("%s report over %s to %s",
				composed.Type,
				composed.DateRange.Start.Format(dateLayout),
				composed.DateRange.End.Format(dateLayout)),
		})
	})
	if err != nil {
		s.metrics.IncrementPersistenceFailure()
		s.logger.WarnContext(ctx, "composed report could not be saved",
			"user_id", userID,
			"report_id", composed.ID,
			"error", err,
		)
		result.Persisted = false
		result.Warnings = append(result.Warnings,
			"the report was generated but could not be saved; it will not appear in listings until regenerated")
	}

	s.metrics.ObserveGenerate(string(composed.Type), time.Since(started))
	s.logger.InfoContext(ctx, "report generated",
		"user_id", userID,
		"report_id", composed.ID,
		"report_type", composed.Type,
		"persisted", result.Persisted,
	)
	return result, nil
}

// Get returns one stored report owned by the user.
func (s *Service) Get(ctx context.Context, userID id.UserID, reportID id.ReportID) (*Report, error) {
	return s.findOwned(ctx, userID, reportID)
}

// List returns one page of the user's reports, newest generation first.
func (s *Service) List(ctx context.Context, q ListQuery) (Page, error) {
	if q.UserID.IsNil() {
		return Page{}, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	items, err := s.store.List(ctx, q)
	if err != nil {
		return Page{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reports")
	}
	return Page{
		Items:   items,
		Limit:   q.Limit,
		Offset:  q.Offset,
		HasMore: len(items) == q.Limit,
	}, nil
}

// Delete removes a stored report. The row and its audit event commit in one
// transaction.
func (s *Service) Delete(ctx context.Context, userID id.UserID, reportID id.ReportID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if reportID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "report id is required")
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Delete(txCtx, userID, reportID); err != nil {
			return err
		}
		return s.emitAudit(txCtx, audit.Event{
			UserID:       userID,
			Subject:      userID.String(),
			Action:       string(audit.EventReportDeleted),
			ResourceType: "report",
			ResourceID:   reportID.String(),
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete report")
	}
	return nil
}

// Regenerate runs a fresh generation from a stored report's original
// parameters. The stored report is left untouched; the result is a new
// report with its own id and generation time.
func (s *Service) Regenerate(ctx context.Context, userID id.UserID, reportID id.ReportID) (GenerateResult, error) {
	original, err := s.findOwned(ctx, userID, reportID)
	if err != nil {
		return GenerateResult{}, err
	}
	input, err := inputFromParameters(original.RawParameters)
	if err != nil {
		return GenerateResult{}, err
	}
	return s.Generate(ctx, userID, input)
}

// Export renders a stored report in the requested format. An empty format
// falls back to the format requested at generation time, then to document.
func (s *Service) Export(ctx context.Context, userID id.UserID, reportID id.ReportID, format string) (Artifact, error) {
	r, err := s.findOwned(ctx, userID, reportID)
	if err != nil {
		return Artifact{}, err
	}
	name := format
	if name == "" {
		name = r.RawParameters.Format
	}
	if name == "" {
		name = string(FormatDocument)
	}
	parsed, err := ParseFormat(name)
	if err != nil {
		return Artifact{}, err
	}
	artifact, err := s.exporter.Export(*r, parsed)
	if err != nil {
		return Artifact{}, err
	}

	s.metrics.IncrementExport(string(parsed))
	// Download tracking is operational; a failed emit must not fail the
	// export.
	if err := s.emitAudit(ctx, audit.Event{
		UserID:       userID,
		Subject:      userID.String(),
		Action:       string(audit.EventReportExportDownloaded),
		ResourceType: "report",
		ResourceID:   reportID.String(),
		Reason:       artifact.Filename,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit export audit event", "error", err)
	}
	return artifact, nil
}

// Templates lists the report type catalog.
func (s *Service) Templates(_ context.Context) []Template {
	return Catalog()
}

func (s *Service) findOwned(ctx context.Context, userID id.UserID, reportID id.ReportID) (*Report, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if reportID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "report id is required")
	}
	r, err := s.store.FindByID(ctx, userID, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	return r, nil
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

func validateGenerateInput(userID id.UserID, input GenerateInput) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	var fields []string
	if !knownTypes[input.Type] {
		fields = append(fields, "report_type")
	}
	if input.Title == "" {
		fields = append(fields, "title")
	}
	if input.StartDate.IsZero() {
		fields = append(fields, "start_date")
	}
	if input.EndDate.IsZero() {
		fields = append(fields, "end_date")
	}
	if input.Format != "" {
		if _, err := ParseFormat(input.Format); err != nil {
			fields = append(fields, "format")
		}
	}
	if len(fields) > 0 {
		return dErrors.NewWithFields(dErrors.CodeValidation, "missing or invalid report parameters", fields)
	}
	if input.EndDate.Before(input.StartDate) {
		return dErrors.NewWithFields(dErrors.CodeValidation, "end_date precedes start_date", []string{"start_date", "end_date"})
	}
	return nil
}

func parametersFrom(input GenerateInput) Parameters {
	return Parameters{
		ReportType:  input.Type,
		Title:       input.Title,
		Description: input.Description,
		StartDate:   input.StartDate.Format(dateLayout),
		EndDate:     input.EndDate.Format(dateLayout),
		Countries:   normalizeCountries(input.Countries),
		Format:      input.Format,
	}
}

func inputFromParameters(p Parameters) (GenerateInput, error) {
	start, err := time.Parse(dateLayout, p.StartDate)
	if err != nil {
		return GenerateInput{}, dErrors.Wrap(err, dErrors.CodeInternal, "stored report parameters are malformed")
	}
	end, err := time.Parse(dateLayout, p.EndDate)
	if err != nil {
		return GenerateInput{}, dErrors.Wrap(err, dErrors.CodeInternal, "stored report parameters are malformed")
	}
	return GenerateInput{
		Type:        p.ReportType,
		Title:       p.Title,
		Description: p.Description,
		StartDate:   start,
		EndDate:     end,
		Countries:   p.Countries,
		Format:      p.Format,
	}, nil
}

func insightWarnings(insights presence.Insights) []string {
	var warnings []string
	if n := len(insights.Conflicts); n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d day(s) in the range have conflicting evidence", n))
	}
	if n := len(insights.Gaps); n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d period(s) in the range have no evidence", n))
	}
	return warnings
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// passthroughTx satisfies TxRunner without a database; memory stores are
// individually synchronized.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
