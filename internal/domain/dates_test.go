package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("15/06/2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("5/6/2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 5, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "2024-06-15", "31/02/2024", "15/13/2024", "abc"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("08:00")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, d)

	d, err = ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23*time.Hour+59*time.Minute, d)

	for _, bad := range []string{"", "24:00", "08:60", "8h", "08:00:00"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	assert.Equal(t, "05/06/2024", FormatDate(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "07:05", FormatClock(7*time.Hour+5*time.Minute))
}

func TestCabinClassFromName(t *testing.T) {
	assert.Equal(t, CabinEconomy, CabinClassFromName("economy"))
	assert.Equal(t, CabinBusiness, CabinClassFromName("BUSINESS"))
	assert.Equal(t, CabinFirst, CabinClassFromName("first class"))
	assert.Equal(t, CabinEconomy, CabinClassFromName("premium"))

	_, ok := LookupCabinClass("premium")
	assert.False(t, ok)
}

func TestAircraftCapacity(t *testing.T) {
	a := Aircraft{TotalSeats: 200, EconomySeats: 150, BusinessSeats: 40}
	assert.Equal(t, 150, a.Capacity(CabinEconomy))
	assert.Equal(t, 40, a.Capacity(CabinBusiness))
	assert.Equal(t, 10, a.Capacity(CabinFirst))

	broken := Aircraft{TotalSeats: 100, EconomySeats: 90, BusinessSeats: 20}
	assert.Equal(t, -10, broken.FirstClassSeats())
}
