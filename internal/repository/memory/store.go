// Package memory keeps the catalog, schedule registry and tickets in process
// memory. It gives the same transactional guarantees as the PostgreSQL
// repositories for a single process.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/repository"
)

type Store struct {
	// catalogMu guards the catalog tables and is never held while acquiring mu.
	catalogMu  sync.RWMutex
	airports   []domain.Airport
	routes     []domain.Route
	aircraft   []domain.Aircraft
	cabinTypes []domain.CabinType

	mu        sync.RWMutex
	schedules []domain.FlightInstance
	tickets   []domain.Ticket

	seq atomic.Int64
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) nextID() int64 {
	return s.seq.Add(1)
}

func (s *Store) AddAirport(code, name string, countryID int64) domain.Airport {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	a := domain.Airport{ID: s.nextID(), IATACode: strings.ToUpper(code), Name: name, CountryID: countryID}
	s.airports = append(s.airports, a)
	return a
}

func (s *Store) AddRoute(fromAirportID, toAirportID int64, distance, flightTime int) domain.Route {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	r := domain.Route{ID: s.nextID(), DepartureAirportID: fromAirportID, ArrivalAirportID: toAirportID, Distance: distance, FlightTime: flightTime}
	s.routes = append(s.routes, r)
	return s.routeLocked(r)
}

func (s *Store) AddAircraft(name, makeModel string, total, economy, business int) domain.Aircraft {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	a := domain.Aircraft{ID: s.nextID(), Name: name, MakeModel: makeModel, TotalSeats: total, EconomySeats: economy, BusinessSeats: business}
	s.aircraft = append(s.aircraft, a)
	return a
}

func (s *Store) AddCabinType(name string) domain.CabinType {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	ct := domain.CabinType{ID: s.nextID(), Name: name, Class: domain.CabinClassFromName(name)}
	s.cabinTypes = append(s.cabinTypes, ct)
	return ct
}

// AddFlight registers a flight instance and returns its populated snapshot.
func (s *Store) AddFlight(f domain.FlightInstance) domain.FlightInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.nextID()
	f.Date = domain.TruncateDate(f.Date)
	s.schedules = append(s.schedules, f)
	return s.snapshot(f)
}

// AddTicket stores t without any capacity check.
func (s *Store) AddTicket(t domain.Ticket) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.tickets = append(s.tickets, t)
	return t
}

// Catalog

func (s *Store) FindAirportByCode(_ context.Context, code string) (*domain.Airport, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, a := range s.airports {
		if a.IATACode == code {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) FindRoute(_ context.Context, fromAirportID, toAirportID int64) (*domain.Route, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	for _, r := range s.routes {
		if r.DepartureAirportID == fromAirportID && r.ArrivalAirportID == toAirportID {
			rt := s.routeLocked(r)
			return &rt, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAirports(_ context.Context) ([]domain.Airport, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	out := make([]domain.Airport, len(s.airports))
	copy(out, s.airports)
	sort.Slice(out, func(i, j int) bool { return out[i].IATACode < out[j].IATACode })
	return out, nil
}

func (s *Store) FindCabinType(_ context.Context, class domain.CabinClass) (*domain.CabinType, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	for _, ct := range s.cabinTypes {
		if strings.EqualFold(ct.Name, string(class)) {
			ct.Class = class
			return &ct, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListCabinTypes(_ context.Context) ([]domain.CabinType, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	out := make([]domain.CabinType, len(s.cabinTypes))
	copy(out, s.cabinTypes)
	return out, nil
}

func (s *Store) FirstAvailableAircraft(_ context.Context) (*domain.Aircraft, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	if len(s.aircraft) == 0 {
		return nil, domain.ErrNotFound
	}
	a := s.aircraft[0]
	return &a, nil
}

// Schedules

func (s *Store) GetByID(_ context.Context, id int64) (*domain.FlightInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.schedules, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	f := s.snapshot(s.schedules[i])
	return &f, nil
}

func (s *Store) Find(_ context.Context, q repository.FlightQuery) ([]domain.FlightInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.FlightInstance, 0)
	for _, row := range s.schedules {
		f := s.snapshot(row)
		if f.Route.DepartureAirportID != q.DepartureAirportID {
			continue
		}
		if q.ArrivalAirportID != 0 && f.Route.ArrivalAirportID != q.ArrivalAirportID {
			continue
		}
		if f.Date.Before(q.DateFrom) || f.Date.After(q.DateTo) {
			continue
		}
		if q.DepartsAfter != nil && f.DepartureTime <= *q.DepartsAfter {
			continue
		}
		if q.ConfirmedOnly && !f.Confirmed {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return byDateTime(out[i], out[j]) })
	return out, nil
}

func (s *Store) List(_ context.Context, filter repository.ScheduleFilter) ([]domain.FlightInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.FlightInstance, 0)
	for _, row := range s.schedules {
		f := s.snapshot(row)
		if filter.DepartureAirportID != 0 && f.Route.DepartureAirportID != filter.DepartureAirportID {
			continue
		}
		if filter.ArrivalAirportID != 0 && f.Route.ArrivalAirportID != filter.ArrivalAirportID {
			continue
		}
		if filter.Date != nil && !f.Date.Equal(*filter.Date) {
			continue
		}
		if filter.FlightNumber != "" && !strings.Contains(f.FlightNumber, filter.FlightNumber) {
			continue
		}
		out = append(out, f)
	}

	less := byDateTime
	switch filter.SortBy {
	case repository.SortByEconomyPrice:
		less = func(a, b domain.FlightInstance) bool {
			if a.EconomyPrice != b.EconomyPrice {
				return a.EconomyPrice < b.EconomyPrice
			}
			return a.ID < b.ID
		}
	case repository.SortByConfirmed:
		less = func(a, b domain.FlightInstance) bool {
			if a.Confirmed != b.Confirmed {
				return a.Confirmed
			}
			return a.ID < b.ID
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func (s *Store) UpdateTiming(_ context.Context, id int64, date time.Time, departure time.Duration, economyPrice float64) (*domain.FlightInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := updateTiming(s.schedules, id, date, departure, economyPrice); err != nil {
		return nil, err
	}
	f := s.snapshot(s.schedules[indexOf(s.schedules, id)])
	return &f, nil
}

func (s *Store) ToggleConfirmed(_ context.Context, id int64) (*domain.FlightInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.schedules, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	s.schedules[i].Confirmed = !s.schedules[i].Confirmed
	f := s.snapshot(s.schedules[i])
	return &f, nil
}

// InTx works on a private copy of the schedule table and swaps it in only
// when fn succeeds. Writers are excluded for the duration.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.ScheduleTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make([]domain.FlightInstance, len(s.schedules))
	copy(staged, s.schedules)
	tx := &scheduleTx{store: s, schedules: staged}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.schedules = tx.schedules
	return nil
}

type scheduleTx struct {
	store     *Store
	schedules []domain.FlightInstance
}

func (t *scheduleTx) FindByNumberDateRoute(_ context.Context, flightNumber string, date time.Time, routeID int64) (*domain.FlightInstance, error) {
	date = domain.TruncateDate(date)
	for _, f := range t.schedules {
		if f.FlightNumber == flightNumber && f.Date.Equal(date) && f.RouteID == routeID {
			snap := t.store.snapshot(f)
			return &snap, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *scheduleTx) FindByNumberRoute(_ context.Context, flightNumber string, routeID int64) (*domain.FlightInstance, error) {
	for _, f := range t.schedules {
		if f.FlightNumber == flightNumber && f.RouteID == routeID {
			snap := t.store.snapshot(f)
			return &snap, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *scheduleTx) Create(_ context.Context, f *domain.FlightInstance) error {
	f.ID = t.store.nextID()
	f.Date = domain.TruncateDate(f.Date)
	t.schedules = append(t.schedules, *f)
	return nil
}

func (t *scheduleTx) UpdateTiming(_ context.Context, id int64, date time.Time, departure time.Duration, economyPrice float64) error {
	return updateTiming(t.schedules, id, date, departure, economyPrice)
}

// Tickets

func (s *Store) CreateBooking(_ context.Context, b *repository.NewBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.schedules, b.FlightID) < 0 {
		return domain.ErrFlightNotFound
	}
	if s.countLocked(b.FlightID, b.CabinTypeID)+len(b.Tickets) > b.Capacity {
		return domain.ErrInsufficientSeats
	}
	for i, t := range b.Tickets {
		if !t.Passenger.Complete() {
			return fmt.Errorf("insert ticket %d: passenger name and passport number are required", i+1)
		}
	}

	now := time.Now()
	for i := range b.Tickets {
		b.Tickets[i].ID = s.nextID()
		b.Tickets[i].FlightID = b.FlightID
		b.Tickets[i].CabinTypeID = b.CabinTypeID
		b.Tickets[i].CreatedAt = now
		s.tickets = append(s.tickets, b.Tickets[i])
	}
	return nil
}

func (s *Store) CountByFlightAndCabin(_ context.Context, flightID, cabinTypeID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(flightID, cabinTypeID), nil
}

func (s *Store) ListByReference(_ context.Context, reference string) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Ticket, 0)
	for _, t := range s.tickets {
		if t.BookingReference == reference {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) countLocked(flightID, cabinTypeID int64) int {
	n := 0
	for _, t := range s.tickets {
		if t.FlightID == flightID && t.CabinTypeID == cabinTypeID {
			n++
		}
	}
	return n
}

// snapshot joins a schedule row with its route and aircraft.
func (s *Store) snapshot(f domain.FlightInstance) domain.FlightInstance {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	for _, r := range s.routes {
		if r.ID == f.RouteID {
			f.Route = s.routeLocked(r)
			break
		}
	}
	for _, a := range s.aircraft {
		if a.ID == f.AircraftID {
			f.Aircraft = a
			break
		}
	}
	return f
}

func (s *Store) routeLocked(r domain.Route) domain.Route {
	for _, a := range s.airports {
		switch a.ID {
		case r.DepartureAirportID:
			r.DepartureCode = a.IATACode
		case r.ArrivalAirportID:
			r.ArrivalCode = a.IATACode
		}
	}
	return r
}

func updateTiming(schedules []domain.FlightInstance, id int64, date time.Time, departure time.Duration, economyPrice float64) error {
	i := indexOf(schedules, id)
	if i < 0 {
		return domain.ErrNotFound
	}
	schedules[i].Date = domain.TruncateDate(date)
	schedules[i].DepartureTime = departure
	schedules[i].EconomyPrice = economyPrice
	return nil
}

func indexOf(schedules []domain.FlightInstance, id int64) int {
	for i, f := range schedules {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func byDateTime(a, b domain.FlightInstance) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.DepartureTime != b.DepartureTime {
		return a.DepartureTime < b.DepartureTime
	}
	return a.ID < b.ID
}

var (
	_ repository.CatalogRepository  = (*Store)(nil)
	_ repository.ScheduleRepository = (*Store)(nil)
	_ repository.TicketRepository   = (*Store)(nil)
)
