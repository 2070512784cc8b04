package domain

import "strings"

type CabinClass string

const (
	CabinEconomy  CabinClass = "Economy"
	CabinBusiness CabinClass = "Business"
	CabinFirst    CabinClass = "First Class"
)

var cabinClasses = []CabinClass{CabinEconomy, CabinBusiness, CabinFirst}

// CabinClasses lists the classes in ascending fare order.
func CabinClasses() []CabinClass {
	out := make([]CabinClass, len(cabinClasses))
	copy(out, cabinClasses)
	return out
}

// LookupCabinClass matches name case-insensitively against the known classes.
func LookupCabinClass(name string) (CabinClass, bool) {
	name = strings.TrimSpace(name)
	for _, c := range cabinClasses {
		if strings.EqualFold(name, string(c)) {
			return c, true
		}
	}
	return "", false
}

// CabinClassFromName is the pricing rule: unrecognised names are Economy.
func CabinClassFromName(name string) CabinClass {
	if c, ok := LookupCabinClass(name); ok {
		return c
	}
	return CabinEconomy
}

// CabinType is the catalog row that partitions ticket inventory.
type CabinType struct {
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	Class CabinClass `json:"class"`
}
