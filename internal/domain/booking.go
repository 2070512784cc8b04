package domain

import (
	"strings"
	"time"
)

type Passenger struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email,omitempty"`
	Phone             string `json:"phone,omitempty"`
	PassportNumber    string `json:"passport_number"`
	PassportCountryID int64  `json:"passport_country_id"`
}

// Complete reports whether the fields a ticket cannot be issued without are set.
func (p Passenger) Complete() bool {
	return strings.TrimSpace(p.FirstName) != "" &&
		strings.TrimSpace(p.LastName) != "" &&
		strings.TrimSpace(p.PassportNumber) != ""
}

type Ticket struct {
	ID               int64     `json:"id"`
	UserID           *int64    `json:"user_id,omitempty"`
	FlightID         int64     `json:"flight_id"`
	CabinTypeID      int64     `json:"cabin_type_id"`
	Passenger        Passenger `json:"passenger"`
	BookingReference string    `json:"booking_reference"`
	Confirmed        bool      `json:"confirmed"`
	CreatedAt        time.Time `json:"created_at"`
}

// Booking groups the tickets written by one booking call.
type Booking struct {
	Reference  string     `json:"reference"`
	FlightID   int64      `json:"flight_id"`
	Cabin      CabinClass `json:"cabin"`
	UserID     *int64     `json:"user_id,omitempty"`
	Tickets    []Ticket   `json:"tickets"`
	UnitPrice  float64    `json:"unit_price"`
	TotalPrice float64    `json:"total_price"`
}
