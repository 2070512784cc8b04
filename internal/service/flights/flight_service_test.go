package flights

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/repository"
	"github.com/Domenick1991/flightengine/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearchCache struct {
	mock.Mock
}

func (m *MockSearchCache) SearchGeneration(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSearchCache) GetSearch(ctx context.Context, key string) (*domain.SearchResult, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SearchResult), args.Error(1)
}

func (m *MockSearchCache) SetSearch(ctx context.Context, key string, result *domain.SearchResult) error {
	args := m.Called(ctx, key, result)
	return args.Error(0)
}

type MockScheduleRepository struct {
	mock.Mock
	repository.ScheduleRepository
}

func (m *MockScheduleRepository) Find(ctx context.Context, q repository.FlightQuery) ([]domain.FlightInstance, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FlightInstance), args.Error(1)
}

func day(d int) time.Time {
	return time.Date(2024, time.June, d, 0, 0, 0, 0, time.UTC)
}

type network struct {
	store              *memory.Store
	jfk, ord, lax, sfo domain.Airport
	jfkLax, jfkOrd     domain.Route
	ordLax, jfkSfo     domain.Route
	aircraft           domain.Aircraft
}

func newNetwork() *network {
	s := memory.NewStore()
	n := &network{store: s}
	n.jfk = s.AddAirport("JFK", "New York", 1)
	n.ord = s.AddAirport("ORD", "Chicago", 1)
	n.lax = s.AddAirport("LAX", "Los Angeles", 1)
	n.sfo = s.AddAirport("SFO", "San Francisco", 1)
	n.jfkLax = s.AddRoute(n.jfk.ID, n.lax.ID, 3983, 330)
	n.jfkOrd = s.AddRoute(n.jfk.ID, n.ord.ID, 1188, 150)
	n.ordLax = s.AddRoute(n.ord.ID, n.lax.ID, 2802, 270)
	n.jfkSfo = s.AddRoute(n.jfk.ID, n.sfo.ID, 4152, 360)
	n.aircraft = s.AddAircraft("A320", "Airbus A320", 180, 150, 24)
	return n
}

func (n *network) add(route domain.Route, number string, d int, at time.Duration, confirmed bool) domain.FlightInstance {
	return n.store.AddFlight(domain.FlightInstance{
		RouteID:       route.ID,
		AircraftID:    n.aircraft.ID,
		Date:          day(d),
		DepartureTime: at,
		FlightNumber:  number,
		EconomyPrice:  250,
		Confirmed:     confirmed,
	})
}

func ids(flights []domain.FlightInstance) []int64 {
	out := make([]int64, 0, len(flights))
	for _, f := range flights {
		out = append(out, f.ID)
	}
	return out
}

func TestFlightService_Search_UnknownAirportIsEmpty(t *testing.T) {
	n := newNetwork()
	n.add(n.jfkLax, "AA100", 15, 8*time.Hour, true)
	service := NewFlightService(n.store, n.store)

	for _, q := range []SearchQuery{
		{From: "XXX", To: "LAX", Date: day(15)},
		{From: "JFK", To: "XXX", Date: day(15)},
	} {
		result, err := service.Search(context.Background(), q)
		require.NoError(t, err)
		assert.True(t, result.Empty())
		assert.NotNil(t, result.Direct)
		assert.NotNil(t, result.Connecting)
	}
}

func TestFlightService_Search_DirectExactDate(t *testing.T) {
	n := newNetwork()
	onDay := n.add(n.jfkLax, "AA100", 15, 8*time.Hour, true)
	n.add(n.jfkLax, "AA101", 16, 8*time.Hour, true)
	n.add(n.jfkLax, "AA102", 15, 9*time.Hour, false)
	service := NewFlightService(n.store, n.store)

	result, err := service.Search(context.Background(), SearchQuery{From: "jfk", To: "LAX", Date: day(15)})
	require.NoError(t, err)
	assert.Equal(t, []int64{onDay.ID}, ids(result.Direct))
}

func TestFlightService_Search_ExtendedWindow(t *testing.T) {
	n := newNetwork()
	n.add(n.jfkLax, "F-4", 11, 8*time.Hour, true)
	minus3 := n.add(n.jfkLax, "F-3", 12, 8*time.Hour, true)
	same := n.add(n.jfkLax, "F0", 15, 8*time.Hour, true)
	plus3 := n.add(n.jfkLax, "F+3", 18, 8*time.Hour, true)
	n.add(n.jfkLax, "F+4", 19, 8*time.Hour, true)
	service := NewFlightService(n.store, n.store)

	result, err := service.Search(context.Background(), SearchQuery{From: "JFK", To: "LAX", Date: day(15), Extended: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{minus3.ID, same.ID, plus3.ID}, ids(result.Direct))

	result, err = service.Search(context.Background(), SearchQuery{From: "JFK", To: "LAX", Date: day(15)})
	require.NoError(t, err)
	assert.Equal(t, []int64{same.ID}, ids(result.Direct))
}

func TestFlightService_Search_Connections(t *testing.T) {
	n := newNetwork()
	first := n.add(n.jfkOrd, "AA10", 15, 8*time.Hour, true)
	later := n.add(n.ordLax, "AA20", 15, 12*time.Hour, true)
	n.add(n.ordLax, "AA21", 15, 8*time.Hour, true)  // same time as first leg
	n.add(n.ordLax, "AA22", 15, 7*time.Hour, true)  // before first leg
	n.add(n.ordLax, "AA23", 16, 12*time.Hour, true) // next day
	n.add(n.ordLax, "AA24", 15, 13*time.Hour, false)
	n.add(n.jfkSfo, "AA30", 15, 6*time.Hour, true) // no onward flight
	direct := n.add(n.jfkLax, "AA40", 15, 6*time.Hour, true)
	service := NewFlightService(n.store, n.store)

	result, err := service.Search(context.Background(), SearchQuery{From: "JFK", To: "LAX", Date: day(15)})
	require.NoError(t, err)

	assert.Equal(t, []int64{direct.ID}, ids(result.Direct))
	require.Len(t, result.Connecting, 1)
	assert.Equal(t, first.ID, result.Connecting[0].First.ID)
	assert.Equal(t, later.ID, result.Connecting[0].Second.ID)
}

func TestFlightService_Search_ConnectionsAreSameDayAndOrdered(t *testing.T) {
	n := newNetwork()
	for d := 12; d <= 18; d++ {
		n.add(n.jfkOrd, "AA10", d, 8*time.Hour, true)
		n.add(n.jfkOrd, "AA11", d, 15*time.Hour, true)
		n.add(n.ordLax, "AA20", d, 12*time.Hour, true)
		n.add(n.ordLax, "AA21", d, 9*time.Hour, true)
	}
	service := NewFlightService(n.store, n.store)

	result, err := service.Search(context.Background(), SearchQuery{From: "JFK", To: "LAX", Date: day(15), Extended: true})
	require.NoError(t, err)

	// two onward flights after 08:00, none after 15:00, over seven days
	assert.Len(t, result.Connecting, 14)
	for _, c := range result.Connecting {
		assert.True(t, c.First.Date.Equal(c.Second.Date))
		assert.Greater(t, c.Second.DepartureTime, c.First.DepartureTime)
		assert.Equal(t, n.ord.ID, c.First.Route.ArrivalAirportID)
		assert.Equal(t, n.lax.ID, c.Second.Route.ArrivalAirportID)
	}
}

func TestFlightService_Search_CacheHit(t *testing.T) {
	mockCache := &MockSearchCache{}
	repo := &MockScheduleRepository{}
	service := NewFlightService(nil, repo, WithCache(mockCache))
	ctx := context.Background()

	cached := &domain.SearchResult{Direct: []domain.FlightInstance{{ID: 9}}}
	mockCache.On("SearchGeneration", ctx).Return(int64(4), nil).Once()
	mockCache.On("GetSearch", ctx, "g4:JFK:LAX:2024-06-15:false").Return(cached, nil).Once()

	result, err := service.Search(ctx, SearchQuery{From: "JFK", To: "LAX", Date: day(15).Add(10 * time.Hour)})

	assert.NoError(t, err)
	assert.Equal(t, cached, result)
	mockCache.AssertExpectations(t)
	repo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
}

func TestFlightService_Search_CacheMissStoresResult(t *testing.T) {
	n := newNetwork()
	n.add(n.jfkLax, "AA100", 15, 8*time.Hour, true)
	mockCache := &MockSearchCache{}
	service := NewFlightService(n.store, n.store, WithCache(mockCache))
	ctx := context.Background()

	mockCache.On("SearchGeneration", ctx).Return(int64(0), nil).Once()
	mockCache.On("GetSearch", ctx, "g0:JFK:LAX:2024-06-15:true").Return(nil, nil).Once()
	mockCache.On("SetSearch", ctx, "g0:JFK:LAX:2024-06-15:true", mock.AnythingOfType("*domain.SearchResult")).Return(errors.New("redis down")).Once()

	result, err := service.Search(ctx, SearchQuery{From: "JFK", To: "LAX", Date: day(15), Extended: true})

	require.NoError(t, err)
	assert.Len(t, result.Direct, 1)
	mockCache.AssertExpectations(t)
}

func TestFlightService_Search_RepositoryError(t *testing.T) {
	n := newNetwork()
	repo := &MockScheduleRepository{}
	service := NewFlightService(n.store, repo)
	ctx := context.Background()

	repo.On("Find", ctx, mock.Anything).Return(nil, errors.New("database error")).Once()

	result, err := service.Search(ctx, SearchQuery{From: "JFK", To: "LAX", Date: day(15)})
	assert.Nil(t, result)
	assert.EqualError(t, err, "database error")
}

func TestFlightService_Search_ExtendedWindowIsThreeDays(t *testing.T) {
	n := newNetwork()
	inside := n.add(n.jfkLax, "AA100", 12, 8*time.Hour, true)
	n.add(n.jfkLax, "AA101", 11, 8*time.Hour, true)
	n.add(n.jfkLax, "AA102", 19, 8*time.Hour, true)
	service := NewFlightService(n.store, n.store)

	result, err := service.Search(context.Background(), SearchQuery{From: "JFK", To: "LAX", Date: day(15), Extended: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{inside.ID}, ids(result.Direct))
}

func TestFlightService_Search_SkipsCacheWithoutGeneration(t *testing.T) {
	n := newNetwork()
	n.add(n.jfkLax, "AA100", 15, 8*time.Hour, true)
	mockCache := &MockSearchCache{}
	service := NewFlightService(n.store, n.store, WithCache(mockCache))
	ctx := context.Background()

	mockCache.On("SearchGeneration", ctx).Return(int64(0), errors.New("redis down")).Once()

	result, err := service.Search(ctx, SearchQuery{From: "JFK", To: "LAX", Date: day(15)})
	require.NoError(t, err)
	assert.Len(t, result.Direct, 1)
	mockCache.AssertNotCalled(t, "GetSearch", mock.Anything, mock.Anything)
	mockCache.AssertNotCalled(t, "SetSearch", mock.Anything, mock.Anything, mock.Anything)
}

// generationCache keeps entries in a map and drops them by bumping the
// generation, the way the Redis cache does.
type generationCache struct {
	mu      sync.Mutex
	gen     int64
	entries map[string]*domain.SearchResult
}

func (c *generationCache) SearchGeneration(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *generationCache) GetSearch(_ context.Context, key string) (*domain.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key], nil
}

func (c *generationCache) SetSearch(_ context.Context, key string, result *domain.SearchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
	return nil
}

func (c *generationCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = map[string]*domain.SearchResult{}
}

// cancelDuringFind runs hook once, after the first Find has read storage.
type cancelDuringFind struct {
	repository.ScheduleRepository
	once sync.Once
	hook func()
}

func (r *cancelDuringFind) Find(ctx context.Context, q repository.FlightQuery) ([]domain.FlightInstance, error) {
	flights, err := r.ScheduleRepository.Find(ctx, q)
	r.once.Do(r.hook)
	return flights, err
}

func TestFlightService_Search_StaleResultNotServedAfterInvalidation(t *testing.T) {
	n := newNetwork()
	f := n.add(n.jfkLax, "AA100", 15, 8*time.Hour, true)
	c := &generationCache{entries: map[string]*domain.SearchResult{}}
	ctx := context.Background()

	repo := &cancelDuringFind{ScheduleRepository: n.store}
	repo.hook = func() {
		_, err := n.store.ToggleConfirmed(ctx, f.ID)
		require.NoError(t, err)
		c.invalidate()
	}
	service := NewFlightService(n.store, repo, WithCache(c))
	q := SearchQuery{From: "JFK", To: "LAX", Date: day(15)}

	inFlight, err := service.Search(ctx, q)
	require.NoError(t, err)
	assert.Len(t, inFlight.Direct, 1)

	after, err := service.Search(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, after.Direct)
}

func TestFlightService_GetByID(t *testing.T) {
	n := newNetwork()
	f := n.add(n.jfkLax, "AA100", 15, 8*time.Hour, true)
	service := NewFlightService(n.store, n.store)

	got, err := service.GetByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "AA100", got.FlightNumber)

	_, err = service.GetByID(context.Background(), 12345)
	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
}
