// Package pricing derives cabin fares from a flight's economy base price.
package pricing

import (
	"math"

	"github.com/Domenick1991/flightengine/internal/domain"
)

const (
	BusinessMarkup   = 1.35
	FirstClassMarkup = 1.30
)

// BusinessPrice is the economy price marked up by 35%, truncated toward zero.
func BusinessPrice(f domain.FlightInstance) float64 {
	return math.Trunc(f.EconomyPrice * BusinessMarkup)
}

// FirstClassPrice marks the truncated business price up by another 30%.
func FirstClassPrice(f domain.FlightInstance) float64 {
	return math.Trunc(BusinessPrice(f) * FirstClassMarkup)
}

func PriceForClass(f domain.FlightInstance, class domain.CabinClass) float64 {
	switch class {
	case domain.CabinBusiness:
		return BusinessPrice(f)
	case domain.CabinFirst:
		return FirstClassPrice(f)
	default:
		return f.EconomyPrice
	}
}

// PriceFor resolves cabinName case-insensitively. Unknown names are charged
// the economy fare.
func PriceFor(f domain.FlightInstance, cabinName string) float64 {
	return PriceForClass(f, domain.CabinClassFromName(cabinName))
}

type Quote struct {
	Cabin     domain.CabinClass `json:"cabin"`
	UnitPrice float64           `json:"unit_price"`
	Seats     int               `json:"seats"`
	Total     float64           `json:"total"`
}

func QuoteFor(f domain.FlightInstance, class domain.CabinClass, seats int) Quote {
	unit := PriceForClass(f, class)
	return Quote{
		Cabin:     class,
		UnitPrice: unit,
		Seats:     seats,
		Total:     unit * float64(seats),
	}
}

// ConnectionQuote prices both legs of a connection in the same cabin.
func ConnectionQuote(c domain.Connection, class domain.CabinClass, seats int) Quote {
	first := QuoteFor(c.First, class, seats)
	second := QuoteFor(c.Second, class, seats)
	return Quote{
		Cabin:     class,
		UnitPrice: first.UnitPrice + second.UnitPrice,
		Seats:     seats,
		Total:     first.Total + second.Total,
	}
}
