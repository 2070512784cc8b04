package memory

import (
	"fmt"
	"os"
	"strings"

	"github.com/Domenick1991/flightengine/internal/domain"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML layout accepted by LoadSeed.
type Seed struct {
	Airports []struct {
		Code      string `yaml:"code"`
		Name      string `yaml:"name"`
		CountryID int64  `yaml:"country_id"`
	} `yaml:"airports"`
	Aircraft []struct {
		Name          string `yaml:"name"`
		MakeModel     string `yaml:"make_model"`
		TotalSeats    int    `yaml:"total_seats"`
		EconomySeats  int    `yaml:"economy_seats"`
		BusinessSeats int    `yaml:"business_seats"`
	} `yaml:"aircraft"`
	CabinTypes []string `yaml:"cabin_types"`
	Routes     []struct {
		From       string `yaml:"from"`
		To         string `yaml:"to"`
		Distance   int    `yaml:"distance"`
		FlightTime int    `yaml:"flight_time"`
	} `yaml:"routes"`
	Schedules []struct {
		FlightNumber string  `yaml:"flight_number"`
		From         string  `yaml:"from"`
		To           string  `yaml:"to"`
		Date         string  `yaml:"date"`
		Time         string  `yaml:"time"`
		EconomyPrice float64 `yaml:"economy_price"`
		Confirmed    *bool   `yaml:"confirmed"`
		Aircraft     string  `yaml:"aircraft"`
	} `yaml:"schedules"`
}

func LoadSeed(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return NewStoreFromSeed(seed)
}

func NewStoreFromSeed(seed Seed) (*Store, error) {
	s := NewStore()

	airports := make(map[string]domain.Airport)
	for _, a := range seed.Airports {
		airports[strings.ToUpper(a.Code)] = s.AddAirport(a.Code, a.Name, a.CountryID)
	}

	aircraft := make(map[string]domain.Aircraft)
	for _, a := range seed.Aircraft {
		aircraft[a.Name] = s.AddAircraft(a.Name, a.MakeModel, a.TotalSeats, a.EconomySeats, a.BusinessSeats)
	}

	for _, name := range seed.CabinTypes {
		s.AddCabinType(name)
	}

	routes := make(map[string]domain.Route)
	for _, r := range seed.Routes {
		from, ok := airports[strings.ToUpper(r.From)]
		if !ok {
			return nil, fmt.Errorf("route %s-%s: unknown airport %s", r.From, r.To, r.From)
		}
		to, ok := airports[strings.ToUpper(r.To)]
		if !ok {
			return nil, fmt.Errorf("route %s-%s: unknown airport %s", r.From, r.To, r.To)
		}
		key := from.IATACode + "-" + to.IATACode
		if _, exists := routes[key]; !exists {
			routes[key] = s.AddRoute(from.ID, to.ID, r.Distance, r.FlightTime)
		} else {
			s.AddRoute(from.ID, to.ID, r.Distance, r.FlightTime)
		}
	}

	for _, sc := range seed.Schedules {
		route, ok := routes[strings.ToUpper(sc.From)+"-"+strings.ToUpper(sc.To)]
		if !ok {
			return nil, fmt.Errorf("schedule %s: no route %s-%s", sc.FlightNumber, sc.From, sc.To)
		}
		ac, ok := aircraft[sc.Aircraft]
		if !ok {
			if len(seed.Aircraft) == 0 {
				return nil, fmt.Errorf("schedule %s: no aircraft", sc.FlightNumber)
			}
			ac = aircraft[seed.Aircraft[0].Name]
		}
		date, err := domain.ParseDate(sc.Date)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", sc.FlightNumber, err)
		}
		dep, err := domain.ParseClock(sc.Time)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", sc.FlightNumber, err)
		}
		confirmed := true
		if sc.Confirmed != nil {
			confirmed = *sc.Confirmed
		}
		s.AddFlight(domain.FlightInstance{
			RouteID:       route.ID,
			AircraftID:    ac.ID,
			Date:          date,
			DepartureTime: dep,
			FlightNumber:  sc.FlightNumber,
			EconomyPrice:  sc.EconomyPrice,
			Confirmed:     confirmed,
		})
	}
	return s, nil
}
