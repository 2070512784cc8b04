package flights

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Domenick1991/flightengine/internal/cache"
	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/repository"
)

// WindowDays is how far an extended search reaches either side of the
// requested date.
const WindowDays = 3

type FlightUseCase interface {
	Search(ctx context.Context, q SearchQuery) (*domain.SearchResult, error)
	GetByID(ctx context.Context, id int64) (*domain.FlightInstance, error)
	ListAirports(ctx context.Context) ([]domain.Airport, error)
	ListCabinTypes(ctx context.Context) ([]domain.CabinType, error)
}

type SearchCache interface {
	SearchGeneration(ctx context.Context) (int64, error)
	GetSearch(ctx context.Context, key string) (*domain.SearchResult, error)
	SetSearch(ctx context.Context, key string, result *domain.SearchResult) error
}

type SearchQuery struct {
	From     string
	To       string
	Date     time.Time
	Extended bool
}

type FlightService struct {
	catalog   repository.CatalogRepository
	schedules repository.ScheduleRepository
	cache     SearchCache
}

type FlightServiceOption func(*FlightService)

func WithCache(c SearchCache) FlightServiceOption {
	return func(s *FlightService) {
		s.cache = c
	}
}

func NewFlightService(catalog repository.CatalogRepository, schedules repository.ScheduleRepository, opts ...FlightServiceOption) *FlightService {
	s := &FlightService{
		catalog:   catalog,
		schedules: schedules,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns confirmed direct flights and same-day one-stop connections.
// Unknown airport codes give an empty result, not an error.
func (s *FlightService) Search(ctx context.Context, q SearchQuery) (*domain.SearchResult, error) {
	date := domain.TruncateDate(q.Date)
	key, cacheable := s.cacheKey(ctx, q, date)
	if cacheable {
		if cached, err := s.cache.GetSearch(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}

	result := &domain.SearchResult{Direct: []domain.FlightInstance{}, Connecting: []domain.Connection{}}

	origin, err := s.catalog.FindAirportByCode(ctx, q.From)
	if err != nil {
		return emptyOnNotFound(result, err)
	}
	destination, err := s.catalog.FindAirportByCode(ctx, q.To)
	if err != nil {
		return emptyOnNotFound(result, err)
	}

	from, to := s.window(date, q.Extended)

	direct, err := s.schedules.Find(ctx, repository.FlightQuery{
		DepartureAirportID: origin.ID,
		ArrivalAirportID:   destination.ID,
		DateFrom:           from,
		DateTo:             to,
		ConfirmedOnly:      true,
	})
	if err != nil {
		return nil, err
	}
	result.Direct = append(result.Direct, direct...)

	firstLegs, err := s.schedules.Find(ctx, repository.FlightQuery{
		DepartureAirportID: origin.ID,
		DateFrom:           from,
		DateTo:             to,
		ConfirmedOnly:      true,
	})
	if err != nil {
		return nil, err
	}

	for _, first := range firstLegs {
		if first.Route.ArrivalAirportID == destination.ID {
			continue
		}
		// connections are same-day only and must leave after the first leg
		departsAfter := first.DepartureTime
		secondLegs, err := s.schedules.Find(ctx, repository.FlightQuery{
			DepartureAirportID: first.Route.ArrivalAirportID,
			ArrivalAirportID:   destination.ID,
			DateFrom:           first.Date,
			DateTo:             first.Date,
			DepartsAfter:       &departsAfter,
			ConfirmedOnly:      true,
		})
		if err != nil {
			return nil, err
		}
		for _, second := range secondLegs {
			result.Connecting = append(result.Connecting, domain.Connection{First: first, Second: second})
		}
	}

	if cacheable {
		if err := s.cache.SetSearch(ctx, key, result); err != nil {
			log.Printf("cache search %s: %v", key, err)
		}
	}
	return result, nil
}

// cacheKey pins the cache generation before storage is read.
func (s *FlightService) cacheKey(ctx context.Context, q SearchQuery, date time.Time) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, err := s.cache.SearchGeneration(ctx)
	if err != nil {
		log.Printf("search cache generation: %v", err)
		return "", false
	}
	return cache.SearchKey(gen, q.From, q.To, date, q.Extended), true
}

func (s *FlightService) window(date time.Time, extended bool) (time.Time, time.Time) {
	if !extended {
		return date, date
	}
	return date.AddDate(0, 0, -WindowDays), date.AddDate(0, 0, WindowDays)
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.FlightInstance, error) {
	f, err := s.schedules.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrFlightNotFound
	}
	return f, err
}

func (s *FlightService) ListAirports(ctx context.Context) ([]domain.Airport, error) {
	return s.catalog.ListAirports(ctx)
}

func (s *FlightService) ListCabinTypes(ctx context.Context) ([]domain.CabinType, error) {
	return s.catalog.ListCabinTypes(ctx)
}

func emptyOnNotFound(result *domain.SearchResult, err error) (*domain.SearchResult, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return result, nil
	}
	return nil, err
}

var _ FlightUseCase = (*FlightService)(nil)
