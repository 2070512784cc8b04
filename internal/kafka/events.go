package kafka

import (
	"time"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/google/uuid"
)

const (
	EventBookingCreated   = "booking_created"
	EventScheduleImported = "schedule_imported"
	EventScheduleUpdated  = "schedule_updated"
)

type BookingEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Reference    string    `json:"reference"`
	FlightID     int64     `json:"flight_id"`
	FlightNumber string    `json:"flight_number"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	DepartsAt    time.Time `json:"departs_at"`
	Cabin        string    `json:"cabin"`
	Passengers   []string  `json:"passengers"`
	Emails       []string  `json:"emails"`
	UserID       *int64    `json:"user_id,omitempty"`
	TotalPrice   float64   `json:"total_price"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking, f *domain.FlightInstance) BookingEvent {
	ev := BookingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Reference:  b.Reference,
		FlightID:   b.FlightID,
		Cabin:      string(b.Cabin),
		UserID:     b.UserID,
		TotalPrice: b.TotalPrice,
		CreatedAt:  time.Now(),
	}
	if f != nil {
		ev.FlightNumber = f.FlightNumber
		ev.From = f.Route.DepartureCode
		ev.To = f.Route.ArrivalCode
		ev.DepartsAt = f.DepartsAt()
	}
	for _, t := range b.Tickets {
		ev.Passengers = append(ev.Passengers, t.Passenger.FirstName+" "+t.Passenger.LastName)
		if t.Passenger.Email != "" {
			ev.Emails = append(ev.Emails, t.Passenger.Email)
		}
	}
	return ev
}

type ScheduleEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	BatchID    string    `json:"batch_id,omitempty"`
	ScheduleID int64     `json:"schedule_id,omitempty"`
	Success    int       `json:"success"`
	Duplicates int       `json:"duplicates"`
	Invalid    int       `json:"invalid"`
	CreatedAt  time.Time `json:"created_at"`
}
