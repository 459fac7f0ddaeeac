package services

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	goa "goa.design/goa/v3/pkg"
	"gorm.io/gorm"

	"beanhealth/internal/domain"
	"beanhealth/internal/metrics"
	apperrors "beanhealth/pkg/errors"
)

// Field length limits enforced on submission.
const (
	MaxNameLength       = 100
	MaxEmailLength      = 254
	MaxLookingForLength = 5000
)

// Listing bounds for GET /api/demo-requests.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

const defaultNotifyTimeout = 30 * time.Second

var demoTracer = otel.Tracer("beanhealth.internal.services.demo")

// DemoNotifier is told about every stored demo request.
type DemoNotifier interface {
	NotifyDemoRequest(ctx context.Context, req *domain.DemoRequest) error
}

// DemoService stores demo requests and alerts the sales team.
type DemoService struct {
	db            *gorm.DB
	notifier      DemoNotifier
	logger        *zap.Logger
	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

// NewDemoService creates a new demo request service. notifier may be nil.
func NewDemoService(db *gorm.DB, notifier DemoNotifier, logger *zap.Logger) *DemoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemoService{
		db:            db,
		notifier:      notifier,
		logger:        logger,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// Submit validates and stores a demo request. Validation failures are
// bad_request service errors; storage failures are internal_error faults.
// Notifications are sent in the background and never fail the submission.
func (s *DemoService) Submit(ctx context.Context, draft domain.DemoRequestDraft) (*domain.DemoRequest, error) {
	ctx, span := demoTracer.Start(ctx, "demo_request.submit")
	defer span.End()

	draft = draft.Normalized()
	s.logger.Info("demo request received", zap.String("email", draft.Email))

	if err := ValidateDraft(draft); err != nil {
		s.logger.Info("demo request rejected", zap.Error(err))
		metrics.RecordDemoRequestRejected("validation")
		span.SetStatus(codes.Error, "validation")
		return nil, BadRequest(err)
	}

	record := &domain.DemoRequest{
		Name:       draft.Name,
		Email:      draft.Email,
		LookingFor: draft.LookingFor,
	}

	start := time.Now()
	err := s.db.WithContext(ctx).Create(record).Error
	metrics.RecordDBQuery("insert", time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to save demo request", zap.Error(err))
		metrics.RecordDemoRequestRejected("storage")
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage")
		return nil, Internal("failed to save demo request")
	}

	span.SetAttributes(attribute.String("beanhealth.demo_request.id", record.ID))
	s.logger.Info("demo request stored", zap.String("id", record.ID), zap.String("email", record.Email))
	metrics.RecordDemoRequest()

	s.notify(record)
	return record, nil
}

// SubmitDemoRequest lets the form controller submit in-process. Every
// failure is reported as SERVER_DECLINED.
func (s *DemoService) SubmitDemoRequest(ctx context.Context, draft domain.DemoRequestDraft) (*domain.DemoRequest, error) {
	record, err := s.Submit(ctx, draft)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeServerDeclined, "demo request was not accepted", err)
	}
	return record, nil
}

// List returns stored demo requests, newest first. A limit outside
// 1..MaxListLimit falls back to DefaultListLimit or MaxListLimit.
func (s *DemoService) List(ctx context.Context, skip, limit int) ([]domain.DemoRequest, error) {
	ctx, span := demoTracer.Start(ctx, "demo_request.list")
	defer span.End()

	if skip < 0 {
		skip = 0
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	s.logger.Debug("listing demo requests", zap.Int("skip", skip), zap.Int("limit", limit))

	requests := make([]domain.DemoRequest, 0, limit)
	start := time.Now()
	err := s.db.WithContext(ctx).Order("created_at DESC").Offset(skip).Limit(limit).Find(&requests).Error
	metrics.RecordDBQuery("select", time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to list demo requests", zap.Error(err))
		span.RecordError(err)
		return nil, Internal("failed to fetch demo requests")
	}

	return requests, nil
}

// Get returns the demo request with the given id.
func (s *DemoService) Get(ctx context.Context, id string) (*domain.DemoRequest, error) {
	ctx, span := demoTracer.Start(ctx, "demo_request.get")
	defer span.End()

	var record domain.DemoRequest
	start := time.Now()
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	metrics.RecordDBQuery("select", time.Since(start), err)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("demo request not found")
	}
	if err != nil {
		s.logger.Error("failed to fetch demo request", zap.String("id", id), zap.Error(err))
		span.RecordError(err)
		return nil, Internal("failed to fetch demo request")
	}
	return &record, nil
}

// Wait blocks until background notifications have finished.
func (s *DemoService) Wait() {
	s.wg.Wait()
}

func (s *DemoService) notify(record *domain.DemoRequest) {
	if s.notifier == nil {
		return
	}

	snapshot := *record
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		ctx, span := demoTracer.Start(ctx, "demo_request.notify")
		defer span.End()

		if err := s.notifier.NotifyDemoRequest(ctx, &snapshot); err != nil {
			span.RecordError(err)
			s.logger.Warn("failed to send demo request notification", zap.String("id", snapshot.ID), zap.Error(err))
			return
		}
		s.logger.Info("demo request notification sent", zap.String("id", snapshot.ID))
	}()
}

// ValidateDraft checks a normalized draft: every field present, a valid
// e-mail address and bounded lengths.
func ValidateDraft(d domain.DemoRequestDraft) (err error) {
	if d.Name == "" {
		err = goa.MergeErrors(err, goa.MissingFieldError("name", "body"))
	}
	if d.Email == "" {
		err = goa.MergeErrors(err, goa.MissingFieldError("email", "body"))
	}
	if d.LookingFor == "" {
		err = goa.MergeErrors(err, goa.MissingFieldError("lookingFor", "body"))
	}

	if n := utf8.RuneCountInString(d.Name); n > MaxNameLength {
		err = goa.MergeErrors(err, goa.InvalidLengthError("body.name", d.Name, n, MaxNameLength, false))
	}
	if n := utf8.RuneCountInString(d.Email); n > MaxEmailLength {
		err = goa.MergeErrors(err, goa.InvalidLengthError("body.email", d.Email, n, MaxEmailLength, false))
	} else if d.Email != "" {
		err = goa.MergeErrors(err, goa.ValidateFormat("body.email", d.Email, goa.FormatEmail))
	}
	if n := utf8.RuneCountInString(d.LookingFor); n > MaxLookingForLength {
		err = goa.MergeErrors(err, goa.InvalidLengthError("body.lookingFor", d.LookingFor, n, MaxLookingForLength, false))
	}

	return err
}
