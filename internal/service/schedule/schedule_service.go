package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/kafka"
	"github.com/Domenick1991/flightengine/internal/repository"
	"github.com/google/uuid"
)

type ScheduleUseCase interface {
	ImportChanges(ctx context.Context, text string) (*ImportResult, error)
	ListSchedules(ctx context.Context, q ListQuery) ([]domain.FlightInstance, error)
	UpdateSchedule(ctx context.Context, id int64, in UpdateInput) (*domain.FlightInstance, error)
	ToggleStatus(ctx context.Context, id int64) (*domain.FlightInstance, error)
}

// SearchInvalidator drops cached search results once schedules change.
type SearchInvalidator interface {
	InvalidateSearch(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// ListQuery filters the schedule listing by airport codes rather than ids.
type ListQuery struct {
	From         string
	To           string
	Date         *time.Time
	FlightNumber string
	SortBy       repository.SortOrder
}

type UpdateInput struct {
	Date         time.Time
	Departure    time.Duration
	EconomyPrice float64
}

type ScheduleService struct {
	catalog   repository.CatalogRepository
	schedules repository.ScheduleRepository
	cache     SearchInvalidator
	producer  Producer
	topic     string
}

type ScheduleServiceOption func(*ScheduleService)

func WithSearchInvalidator(c SearchInvalidator) ScheduleServiceOption {
	return func(s *ScheduleService) {
		s.cache = c
	}
}

func WithProducer(p Producer, topic string) ScheduleServiceOption {
	return func(s *ScheduleService) {
		s.producer = p
		s.topic = topic
	}
}

func NewScheduleService(catalog repository.CatalogRepository, schedules repository.ScheduleRepository, opts ...ScheduleServiceOption) *ScheduleService {
	service := &ScheduleService{
		catalog:   catalog,
		schedules: schedules,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// ListSchedules returns an empty list when either airport code is unknown.
func (s *ScheduleService) ListSchedules(ctx context.Context, q ListQuery) ([]domain.FlightInstance, error) {
	filter := repository.ScheduleFilter{
		Date:         q.Date,
		FlightNumber: q.FlightNumber,
		SortBy:       q.SortBy,
	}
	switch filter.SortBy {
	case repository.SortByDateTime, repository.SortByEconomyPrice, repository.SortByConfirmed:
	default:
		filter.SortBy = repository.SortByDateTime
	}

	var ok bool
	var err error
	if filter.DepartureAirportID, ok, err = s.airportID(ctx, q.From); err != nil || !ok {
		return []domain.FlightInstance{}, err
	}
	if filter.ArrivalAirportID, ok, err = s.airportID(ctx, q.To); err != nil || !ok {
		return []domain.FlightInstance{}, err
	}

	flights, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, domain.NewPersistenceError("list schedules", err)
	}
	return flights, nil
}

func (s *ScheduleService) UpdateSchedule(ctx context.Context, id int64, in UpdateInput) (*domain.FlightInstance, error) {
	if !validPrice(in.EconomyPrice) {
		return nil, fmt.Errorf("%w: economy price must be a non-negative number", domain.ErrInvalidSchedule)
	}
	if in.Departure < 0 || in.Departure >= 24*time.Hour {
		return nil, fmt.Errorf("%w: departure time out of range", domain.ErrInvalidSchedule)
	}

	f, err := s.schedules.UpdateTiming(ctx, id, domain.TruncateDate(in.Date), in.Departure, in.EconomyPrice)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, domain.NewPersistenceError("update schedule", err)
	}
	s.changed(ctx, f.ID)
	return f, nil
}

func (s *ScheduleService) ToggleStatus(ctx context.Context, id int64) (*domain.FlightInstance, error) {
	f, err := s.schedules.ToggleConfirmed(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, domain.NewPersistenceError("toggle schedule", err)
	}
	log.Printf("schedule %d (%s) confirmed=%t", f.ID, f.FlightNumber, f.Confirmed)
	s.changed(ctx, f.ID)
	return f, nil
}

// airportID resolves an optional airport code. An empty code matches any
// airport; ok is false for a code that does not exist.
func (s *ScheduleService) airportID(ctx context.Context, code string) (int64, bool, error) {
	if code == "" {
		return 0, true, nil
	}
	a, err := s.catalog.FindAirportByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, domain.NewPersistenceError("find airport", err)
	}
	return a.ID, true, nil
}

func (s *ScheduleService) changed(ctx context.Context, scheduleID int64) {
	s.invalidate(ctx)
	s.publish(ctx, scheduleKey(scheduleID), kafka.ScheduleEvent{
		ID:         uuid.NewString(),
		Type:       kafka.EventScheduleUpdated,
		ScheduleID: scheduleID,
		CreatedAt:  time.Now(),
	})
}

func (s *ScheduleService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSearch(ctx); err != nil {
		log.Printf("WARNING: failed to invalidate search cache: %v", err)
	}
}

func (s *ScheduleService) publish(ctx context.Context, key string, event kafka.ScheduleEvent) {
	if s.producer == nil || s.topic == "" {
		return
	}
	if err := s.producer.Publish(ctx, s.topic, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event: %v", event.Type, err)
	}
}

func validPrice(p float64) bool {
	return p >= 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

func scheduleKey(id int64) string {
	return fmt.Sprintf("schedule-%d", id)
}

var _ ScheduleUseCase = (*ScheduleService)(nil)
