package domain

import "time"

type Airport struct {
	ID        int64  `json:"id"`
	IATACode  string `json:"iata_code"`
	Name      string `json:"name"`
	CountryID int64  `json:"country_id"`
}

// Route is a directed edge between two airports. Several routes may connect
// the same pair.
type Route struct {
	ID                 int64  `json:"id"`
	DepartureAirportID int64  `json:"departure_airport_id"`
	ArrivalAirportID   int64  `json:"arrival_airport_id"`
	DepartureCode      string `json:"departure_code"`
	ArrivalCode        string `json:"arrival_code"`
	Distance           int    `json:"distance"`
	FlightTime         int    `json:"flight_time"`
}

type Aircraft struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	MakeModel     string `json:"make_model"`
	TotalSeats    int    `json:"total_seats"`
	EconomySeats  int    `json:"economy_seats"`
	BusinessSeats int    `json:"business_seats"`
}

// FirstClassSeats is whatever is left of the layout once economy and business
// are taken out. Inconsistent layouts yield a negative value.
func (a Aircraft) FirstClassSeats() int {
	return a.TotalSeats - a.EconomySeats - a.BusinessSeats
}

func (a Aircraft) Capacity(class CabinClass) int {
	switch class {
	case CabinBusiness:
		return a.BusinessSeats
	case CabinFirst:
		return a.FirstClassSeats()
	default:
		return a.EconomySeats
	}
}

// FlightInstance is one scheduled departure of a route. Date is a calendar
// date at UTC midnight, DepartureTime the local departure as an offset from
// midnight.
type FlightInstance struct {
	ID            int64         `json:"id"`
	RouteID       int64         `json:"route_id"`
	AircraftID    int64         `json:"aircraft_id"`
	Route         Route         `json:"route"`
	Aircraft      Aircraft      `json:"aircraft"`
	Date          time.Time     `json:"date"`
	DepartureTime time.Duration `json:"departure_time"`
	FlightNumber  string        `json:"flight_number"`
	EconomyPrice  float64       `json:"economy_price"`
	Confirmed     bool          `json:"confirmed"`
}

// DepartsAt combines the calendar date and departure time.
func (f FlightInstance) DepartsAt() time.Time {
	return f.Date.Add(f.DepartureTime)
}

// ArrivesAt uses the route's scheduled flight time.
func (f FlightInstance) ArrivesAt() time.Time {
	return f.DepartsAt().Add(time.Duration(f.Route.FlightTime) * time.Minute)
}

// Connection is a two-leg itinerary through one intermediate airport.
type Connection struct {
	First  FlightInstance `json:"first"`
	Second FlightInstance `json:"second"`
}

type SearchResult struct {
	Direct     []FlightInstance `json:"direct"`
	Connecting []Connection     `json:"connecting"`
}

// Empty reports whether neither direct nor connecting itineraries were found.
func (r *SearchResult) Empty() bool {
	return r == nil || (len(r.Direct) == 0 && len(r.Connecting) == 0)
}
