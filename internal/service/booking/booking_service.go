package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/kafka"
	"github.com/Domenick1991/flightengine/internal/pricing"
	"github.com/Domenick1991/flightengine/internal/repository"
)

const (
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceLength   = 6

	lockRetryInterval = 25 * time.Millisecond
)

type BookingUseCase interface {
	CheckAvailability(ctx context.Context, flightID int64, cabin string, seats int) (bool, error)
	Book(ctx context.Context, input BookInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, reference string) (*domain.Booking, error)
}

// Cache provides the cross-process inventory lock.
type Cache interface {
	AcquireInventoryLock(ctx context.Context, flightID, cabinTypeID int64, ttl time.Duration) (bool, error)
	ReleaseInventoryLock(ctx context.Context, flightID, cabinTypeID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookInput struct {
	FlightID   int64              `json:"flight_id"`
	Cabin      string             `json:"cabin"`
	Passengers []domain.Passenger `json:"passengers"`
	UserID     *int64             `json:"user_id,omitempty"`
}

type BookingService struct {
	catalog            repository.CatalogRepository
	schedules          repository.ScheduleRepository
	tickets            repository.TicketRepository
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	lockTTL            time.Duration
	txTimeout          time.Duration
	locks              *keyedMutex
	newReference       func() string
}

type BookingServiceOption func(*BookingService)

func WithCache(c Cache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = c
	}
}

func WithProducer(p Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	catalog repository.CatalogRepository,
	schedules repository.ScheduleRepository,
	tickets repository.TicketRepository,
	lockTTL, txTimeout time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		catalog:      catalog,
		schedules:    schedules,
		tickets:      tickets,
		lockTTL:      lockTTL,
		txTimeout:    txTimeout,
		locks:        newKeyedMutex(),
		newReference: NewReference,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// NewReference draws a 6 character booking reference from [A-Z0-9].
// Collisions with earlier bookings are not checked.
func NewReference() string {
	b := make([]byte, referenceLength)
	for i := range b {
		b[i] = referenceAlphabet[rand.IntN(len(referenceAlphabet))]
	}
	return string(b)
}

// CheckAvailability fails closed: an unknown flight or cabin reports false
// without an error.
func (s *BookingService) CheckAvailability(ctx context.Context, flightID int64, cabin string, seats int) (bool, error) {
	if seats < 1 {
		return false, nil
	}
	flight, ct, err := s.resolve(ctx, flightID, cabin)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	existing, err := s.tickets.CountByFlightAndCabin(ctx, flight.ID, ct.ID)
	if err != nil {
		return false, domain.NewPersistenceError("count tickets", err)
	}
	return existing+seats <= flight.Aircraft.Capacity(ct.Class), nil
}

func (s *BookingService) Book(ctx context.Context, input BookInput) (*domain.Booking, error) {
	if len(input.Passengers) == 0 {
		return nil, fmt.Errorf("%w: at least one passenger is required", domain.ErrInvalidPassengers)
	}
	for i, p := range input.Passengers {
		if !p.Complete() {
			return nil, fmt.Errorf("%w: passenger %d needs first name, last name and passport number", domain.ErrInvalidPassengers, i+1)
		}
	}

	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	flight, ct, err := s.resolve(ctx, input.FlightID, input.Cabin)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, flight.ID, ct.ID)
	if err != nil {
		return nil, domain.NewPersistenceError("acquire inventory lock", err)
	}
	defer unlock()

	reference := s.newReference()
	tickets := make([]domain.Ticket, len(input.Passengers))
	for i, p := range input.Passengers {
		tickets[i] = domain.Ticket{
			UserID:           input.UserID,
			FlightID:         flight.ID,
			CabinTypeID:      ct.ID,
			Passenger:        p,
			BookingReference: reference,
			Confirmed:        true,
		}
	}

	err = s.tickets.CreateBooking(ctx, &repository.NewBooking{
		FlightID:    flight.ID,
		CabinTypeID: ct.ID,
		Capacity:    flight.Aircraft.Capacity(ct.Class),
		Tickets:     tickets,
	})
	switch {
	case errors.Is(err, domain.ErrInsufficientSeats), errors.Is(err, domain.ErrFlightNotFound):
		return nil, err
	case err != nil:
		return nil, domain.NewPersistenceError("create booking", err)
	}

	quote := pricing.QuoteFor(*flight, ct.Class, len(tickets))
	booking := &domain.Booking{
		Reference:  reference,
		FlightID:   flight.ID,
		Cabin:      ct.Class,
		UserID:     input.UserID,
		Tickets:    tickets,
		UnitPrice:  quote.UnitPrice,
		TotalPrice: quote.Total,
	}
	log.Printf("booking %s: %d %s seat(s) on flight %s (%d)", reference, len(tickets), ct.Class, flight.FlightNumber, flight.ID)

	if err := s.publish(ctx, booking, flight); err != nil {
		log.Printf("WARNING: failed to publish booking_created event for booking %s: %v", reference, err)
	}
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	tickets, err := s.tickets.ListByReference(ctx, reference)
	if err != nil {
		return nil, domain.NewPersistenceError("list tickets", err)
	}
	if len(tickets) == 0 {
		return nil, domain.ErrBookingNotFound
	}

	first := tickets[0]
	booking := &domain.Booking{
		Reference: reference,
		FlightID:  first.FlightID,
		Cabin:     domain.CabinEconomy,
		UserID:    first.UserID,
		Tickets:   tickets,
	}

	types, err := s.catalog.ListCabinTypes(ctx)
	if err != nil {
		return nil, domain.NewPersistenceError("list cabin types", err)
	}
	for _, ct := range types {
		if ct.ID == first.CabinTypeID {
			booking.Cabin = ct.Class
		}
	}

	flight, err := s.schedules.GetByID(ctx, first.FlightID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewPersistenceError("get flight", err)
	}
	if flight != nil {
		quote := pricing.QuoteFor(*flight, booking.Cabin, len(tickets))
		booking.UnitPrice = quote.UnitPrice
		booking.TotalPrice = quote.Total
	}
	return booking, nil
}

func (s *BookingService) resolve(ctx context.Context, flightID int64, cabin string) (*domain.FlightInstance, *domain.CabinType, error) {
	flight, err := s.schedules.GetByID(ctx, flightID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrFlightNotFound
		}
		return nil, nil, domain.NewPersistenceError("get flight", err)
	}

	class, ok := domain.LookupCabinClass(cabin)
	if !ok {
		return nil, nil, domain.ErrCabinTypeNotFound
	}
	ct, err := s.catalog.FindCabinType(ctx, class)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrCabinTypeNotFound
		}
		return nil, nil, domain.NewPersistenceError("find cabin type", err)
	}
	return flight, ct, nil
}

// lock serialises bookings on one flight/cabin. The in-process lock is always
// taken; the Redis lock additionally covers other API processes.
func (s *BookingService) lock(ctx context.Context, flightID, cabinTypeID int64) (func(), error) {
	key := inventoryKey{flightID: flightID, cabinTypeID: cabinTypeID}
	if err := s.locks.Lock(ctx, key); err != nil {
		return nil, err
	}
	if s.cache == nil {
		return func() { s.locks.Unlock(key) }, nil
	}

	for {
		ok, err := s.cache.AcquireInventoryLock(ctx, flightID, cabinTypeID, s.lockTTL)
		if err != nil {
			s.locks.Unlock(key)
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			s.locks.Unlock(key)
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	return func() {
		// ctx may already be past its deadline here
		if err := s.cache.ReleaseInventoryLock(context.Background(), flightID, cabinTypeID); err != nil {
			log.Printf("release inventory lock flight=%d cabin=%d: %v", flightID, cabinTypeID, err)
		}
		s.locks.Unlock(key)
	}, nil
}

func (s *BookingService) publish(ctx context.Context, booking *domain.Booking, flight *domain.FlightInstance) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.NewBookingEvent(kafka.EventBookingCreated, booking, flight)
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.Reference, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, booking.Reference, event)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrFlightNotFound) || errors.Is(err, domain.ErrCabinTypeNotFound)
}

var _ BookingUseCase = (*BookingService)(nil)
