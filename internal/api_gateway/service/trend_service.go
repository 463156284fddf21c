package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-trend-cube/internal/domain/cube"
	"github.com/fintrack-trend-cube/internal/domain/journal"
	"github.com/fintrack-trend-cube/internal/domain/shared"
	"github.com/fintrack-trend-cube/internal/platform/messaging/producers"
)

// TrendServiceImpl implements the TrendService interface
type TrendServiceImpl struct {
	cubeRepo    cube.Repository
	journalRepo journal.Repository
	producer    producers.MessagePublisher
	logger      *slog.Logger
}

// NewTrendService creates a new trend service
func NewTrendService(logger *slog.Logger, cubeRepo cube.Repository, journalRepo journal.Repository, producer producers.MessagePublisher) TrendService {
	return &TrendServiceImpl{
		cubeRepo:    cubeRepo,
		journalRepo: journalRepo,
		producer:    producer,
		logger:      logger,
	}
}

// GetTrends returns the cube rows of one granularity whose periods contain
// any part of [start, end]. The requested range is mapped onto period starts
// so partially covered periods at either edge are included whole.
func (s *TrendServiceImpl) GetTrends(ctx context.Context, tenantID uuid.UUID, granularity cube.Granularity, start, end time.Time, filter cube.RowFilter) ([]*cube.Row, error) {
	from := cube.PeriodFor(start, granularity).Start
	to := cube.PeriodFor(end, granularity).Start

	rows, err := s.cubeRepo.FindByPeriodStartRange(ctx, tenantID, granularity, from, to, filter)
	if err != nil {
		s.logger.Error("Failed to query trend rows",
			"tenant_id", tenantID.String(),
			"granularity", string(granularity),
			"error", err,
		)
		return nil, fmt.Errorf("failed to query trend rows: %w", err)
	}

	return rows, nil
}

// RegenerateCube publishes a rebuild request for the tenant's date range and
// returns the event ID so callers can correlate the asynchronous work
func (s *TrendServiceImpl) RegenerateCube(ctx context.Context, tenantID uuid.UUID, start, end time.Time, correlationID string) (uuid.UUID, error) {
	event := shared.NewRegenerateEvent(tenantID, start, end, correlationID)
	if err := event.Validate(); err != nil {
		return uuid.Nil, err
	}

	if err := s.producer.Publish(ctx, event.TenantID.String(), event); err != nil {
		s.logger.Error("Failed to publish regenerate event",
			"event_id", event.EventID.String(),
			"tenant_id", tenantID.String(),
			"error", err,
		)
		return uuid.Nil, err
	}

	s.logger.Info("Cube regeneration published",
		"event_id", event.EventID.String(),
		"tenant_id", tenantID.String(),
		"start_date", start.Format(time.DateOnly),
		"end_date", end.Format(time.DateOnly),
	)
	return event.EventID, nil
}

// GetJournal retrieves a paginated list of the tenant's journal entries.
// Returns entries, total count, and any error
func (s *TrendServiceImpl) GetJournal(ctx context.Context, tenantID uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.journalRepo.GetByTenantID(ctx, tenantID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query journal entries: %w", err)
	}

	total, err := s.journalRepo.CountByTenantID(ctx, tenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count journal entries: %w", err)
	}

	return entries, total, nil
}
