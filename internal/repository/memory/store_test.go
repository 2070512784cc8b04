package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, time.June, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store    *Store
	jfk, lax domain.Airport
	route    domain.Route
	aircraft domain.Aircraft
	economy  domain.CabinType
}

func newFixture() *fixture {
	s := NewStore()
	f := &fixture{store: s}
	f.jfk = s.AddAirport("JFK", "John F. Kennedy", 1)
	f.lax = s.AddAirport("LAX", "Los Angeles", 1)
	f.route = s.AddRoute(f.jfk.ID, f.lax.ID, 3983, 330)
	f.aircraft = s.AddAircraft("Boeing 737", "737-800", 180, 150, 20)
	f.economy = s.AddCabinType("Economy")
	s.AddCabinType("Business")
	s.AddCabinType("First Class")
	return f
}

func (f *fixture) flight(number string, d int, at time.Duration) domain.FlightInstance {
	return f.store.AddFlight(domain.FlightInstance{
		RouteID:       f.route.ID,
		AircraftID:    f.aircraft.ID,
		Date:          day(d),
		DepartureTime: at,
		FlightNumber:  number,
		EconomyPrice:  300,
		Confirmed:     true,
	})
}

func passenger(n string) domain.Passenger {
	return domain.Passenger{FirstName: n, LastName: "Doe", PassportNumber: "P" + n}
}

func TestStore_CatalogLookups(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.store.FindAirportByCode(ctx, "jfk")
	require.NoError(t, err)
	assert.Equal(t, f.jfk.ID, a.ID)

	_, err = f.store.FindAirportByCode(ctx, "XXX")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	r, err := f.store.FindRoute(ctx, f.jfk.ID, f.lax.ID)
	require.NoError(t, err)
	assert.Equal(t, "JFK", r.DepartureCode)
	assert.Equal(t, "LAX", r.ArrivalCode)

	_, err = f.store.FindRoute(ctx, f.lax.ID, f.jfk.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ct, err := f.store.FindCabinType(ctx, domain.CabinFirst)
	require.NoError(t, err)
	assert.Equal(t, "First Class", ct.Name)

	ac, err := f.store.FirstAvailableAircraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.aircraft.ID, ac.ID)

	_, err = NewStore().FirstAvailableAircraft(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_FindWindowAndOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	late := f.flight("AA2", 15, 18*time.Hour)
	early := f.flight("AA1", 15, 8*time.Hour)
	f.flight("AA3", 19, 8*time.Hour)
	cancelled := f.flight("AA4", 15, 9*time.Hour)
	_, err := f.store.ToggleConfirmed(ctx, cancelled.ID)
	require.NoError(t, err)

	got, err := f.store.Find(ctx, repository.FlightQuery{
		DepartureAirportID: f.jfk.ID,
		ArrivalAirportID:   f.lax.ID,
		DateFrom:           day(15),
		DateTo:             day(15),
		ConfirmedOnly:      true,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID)
	assert.Equal(t, late.ID, got[1].ID)
	assert.Equal(t, "JFK", got[0].Route.DepartureCode)
	assert.Equal(t, 150, got[0].Aircraft.EconomySeats)

	after := 8 * time.Hour
	got, err = f.store.Find(ctx, repository.FlightQuery{
		DepartureAirportID: f.jfk.ID,
		DateFrom:           day(12),
		DateTo:             day(18),
		DepartsAfter:       &after,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, cancelled.ID, got[0].ID)
	assert.Equal(t, late.ID, got[1].ID)
}

func TestStore_ListFilterAndSort(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a := f.flight("AA100", 15, 8*time.Hour)
	b := f.flight("BA200", 16, 8*time.Hour)
	_, err := f.store.UpdateTiming(ctx, a.ID, day(15), 8*time.Hour, 500)
	require.NoError(t, err)
	_, err = f.store.ToggleConfirmed(ctx, b.ID)
	require.NoError(t, err)

	got, err := f.store.List(ctx, repository.ScheduleFilter{FlightNumber: "A1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	got, err = f.store.List(ctx, repository.ScheduleFilter{SortBy: repository.SortByEconomyPrice})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, a.ID}, []int64{got[0].ID, got[1].ID})

	got, err = f.store.List(ctx, repository.ScheduleFilter{SortBy: repository.SortByConfirmed})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, []int64{got[0].ID, got[1].ID})

	d := day(16)
	got, err = f.store.List(ctx, repository.ScheduleFilter{Date: &d})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestStore_InTxRollsBackOnError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	existing := f.flight("AA100", 15, 8*time.Hour)

	boom := errors.New("boom")
	err := f.store.InTx(ctx, func(tx repository.ScheduleTx) error {
		require.NoError(t, tx.Create(ctx, &domain.FlightInstance{RouteID: f.route.ID, AircraftID: f.aircraft.ID, Date: day(20), FlightNumber: "NEW"}))
		require.NoError(t, tx.UpdateTiming(ctx, existing.ID, day(21), 9*time.Hour, 1))

		// writes are visible inside the transaction
		found, err := tx.FindByNumberDateRoute(ctx, "NEW", day(20), f.route.ID)
		require.NoError(t, err)
		assert.Equal(t, "NEW", found.FlightNumber)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := f.store.List(ctx, repository.ScheduleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, day(15), all[0].Date)
	assert.Equal(t, 300.0, all[0].EconomyPrice)
}

func TestStore_InTxCommits(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.store.InTx(ctx, func(tx repository.ScheduleTx) error {
		return tx.Create(ctx, &domain.FlightInstance{RouteID: f.route.ID, AircraftID: f.aircraft.ID, Date: day(20), FlightNumber: "NEW", Confirmed: true})
	})
	require.NoError(t, err)

	all, err := f.store.List(ctx, repository.ScheduleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "NEW", all[0].FlightNumber)
}

func TestStore_CreateBookingCapacity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	flight := f.flight("AA100", 15, 8*time.Hour)

	err := f.store.CreateBooking(ctx, &repository.NewBooking{
		FlightID:    flight.ID,
		CabinTypeID: f.economy.ID,
		Capacity:    2,
		Tickets: []domain.Ticket{
			{Passenger: passenger("A"), BookingReference: "ABC123", Confirmed: true},
			{Passenger: passenger("B"), BookingReference: "ABC123", Confirmed: true},
			{Passenger: passenger("C"), BookingReference: "ABC123", Confirmed: true},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientSeats)

	n, err := f.store.CountByFlightAndCabin(ctx, flight.ID, f.economy.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = f.store.CreateBooking(ctx, &repository.NewBooking{FlightID: 999, CabinTypeID: f.economy.ID, Capacity: 10})
	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
}

func TestStore_CreateBookingIsAllOrNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	flight := f.flight("AA100", 15, 8*time.Hour)

	err := f.store.CreateBooking(ctx, &repository.NewBooking{
		FlightID:    flight.ID,
		CabinTypeID: f.economy.ID,
		Capacity:    10,
		Tickets: []domain.Ticket{
			{Passenger: passenger("A"), BookingReference: "ABC123"},
			{Passenger: domain.Passenger{FirstName: "B"}, BookingReference: "ABC123"},
		},
	})
	assert.Error(t, err)

	tickets, err := f.store.ListByReference(ctx, "ABC123")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestStore_ConcurrentBookingsNeverOversell(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	flight := f.flight("AA100", 15, 8*time.Hour)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.store.CreateBooking(ctx, &repository.NewBooking{
				FlightID:    flight.ID,
				CabinTypeID: f.economy.ID,
				Capacity:    20,
				Tickets:     []domain.Ticket{{Passenger: passenger("A")}, {Passenger: passenger("B")}},
			})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	n, err := f.store.CountByFlightAndCabin(ctx, flight.ID, f.economy.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, ok)
	assert.Equal(t, 20, n)
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
airports:
  - {code: JFK, name: New York}
  - {code: LAX, name: Los Angeles}
aircraft:
  - {name: A320, make_model: Airbus A320, total_seats: 180, economy_seats: 150, business_seats: 24}
cabin_types: [Economy, Business, First Class]
routes:
  - {from: JFK, to: LAX, distance: 3983, flight_time: 330}
schedules:
  - {flight_number: AA100, from: JFK, to: LAX, date: 15/06/2024, time: "08:00", economy_price: 300}
  - {flight_number: AA101, from: JFK, to: LAX, date: 16/06/2024, time: "09:30", economy_price: 320, confirmed: false}
`), 0o600))

	s, err := LoadSeed(path)
	require.NoError(t, err)

	all, err := s.List(context.Background(), repository.ScheduleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Confirmed)
	assert.False(t, all[1].Confirmed)
	assert.Equal(t, 9*time.Hour+30*time.Minute, all[1].DepartureTime)
	assert.Equal(t, "A320", all[0].Aircraft.Name)
}

func TestLoadSeed_UnknownAirport(t *testing.T) {
	_, err := NewStoreFromSeed(Seed{Routes: []struct {
		From       string `yaml:"from"`
		To         string `yaml:"to"`
		Distance   int    `yaml:"distance"`
		FlightTime int    `yaml:"flight_time"`
	}{{From: "JFK", To: "LAX"}}})
	assert.Error(t, err)
}
