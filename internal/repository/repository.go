package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/flightengine/internal/domain"
)

// CatalogRepository is the read side of airports, routes, aircraft and cabin
// types. Lookups that miss return domain.ErrNotFound.
type CatalogRepository interface {
	FindAirportByCode(ctx context.Context, code string) (*domain.Airport, error)
	FindRoute(ctx context.Context, fromAirportID, toAirportID int64) (*domain.Route, error)
	ListAirports(ctx context.Context) ([]domain.Airport, error)
	FindCabinType(ctx context.Context, class domain.CabinClass) (*domain.CabinType, error)
	ListCabinTypes(ctx context.Context) ([]domain.CabinType, error)
	FirstAvailableAircraft(ctx context.Context) (*domain.Aircraft, error)
}

// FlightQuery selects flight instances departing an airport within a date
// window. Zero ArrivalAirportID matches any destination.
type FlightQuery struct {
	DepartureAirportID int64
	ArrivalAirportID   int64
	DateFrom           time.Time
	DateTo             time.Time
	DepartsAfter       *time.Duration
	ConfirmedOnly      bool
}

type SortOrder string

const (
	SortByDateTime     SortOrder = "date_time"
	SortByEconomyPrice SortOrder = "economy_price"
	SortByConfirmed    SortOrder = "confirmed"
)

// ScheduleFilter backs the schedule management listing. Zero fields do not
// filter; FlightNumber matches as a substring.
type ScheduleFilter struct {
	DepartureAirportID int64
	ArrivalAirportID   int64
	Date               *time.Time
	FlightNumber       string
	SortBy             SortOrder
}

type ScheduleRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.FlightInstance, error)
	Find(ctx context.Context, q FlightQuery) ([]domain.FlightInstance, error)
	List(ctx context.Context, f ScheduleFilter) ([]domain.FlightInstance, error)
	UpdateTiming(ctx context.Context, id int64, date time.Time, departure time.Duration, economyPrice float64) (*domain.FlightInstance, error)
	ToggleConfirmed(ctx context.Context, id int64) (*domain.FlightInstance, error)
	// InTx runs fn in one transaction; nothing fn wrote survives if it or the
	// commit fails.
	InTx(ctx context.Context, fn func(tx ScheduleTx) error) error
}

// ScheduleTx is the write scope of a schedule batch.
type ScheduleTx interface {
	FindByNumberDateRoute(ctx context.Context, flightNumber string, date time.Time, routeID int64) (*domain.FlightInstance, error)
	FindByNumberRoute(ctx context.Context, flightNumber string, routeID int64) (*domain.FlightInstance, error)
	Create(ctx context.Context, f *domain.FlightInstance) error
	UpdateTiming(ctx context.Context, id int64, date time.Time, departure time.Duration, economyPrice float64) error
}

// NewBooking is a batch of tickets to be written against one flight and
// cabin type, provided the cabin still has Capacity seats for all of them.
type NewBooking struct {
	FlightID    int64
	CabinTypeID int64
	Capacity    int
	Tickets     []domain.Ticket
}

type TicketRepository interface {
	// CreateBooking counts existing tickets and inserts all of b.Tickets as a
	// single unit. It returns domain.ErrInsufficientSeats without writing when
	// the count plus the batch exceeds b.Capacity.
	CreateBooking(ctx context.Context, b *NewBooking) error
	CountByFlightAndCabin(ctx context.Context, flightID, cabinTypeID int64) (int, error)
	ListByReference(ctx context.Context, reference string) ([]domain.Ticket, error)
}
