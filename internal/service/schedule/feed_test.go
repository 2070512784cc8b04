package schedule

import (
	"strings"
	"testing"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeed(t *testing.T) {
	text := "Operation,Flight,From,To,Date,Time,Price\r\n" +
		"ADD, AA100 ,JFK,LAX,15/06/2024,09:30,300\r\n" +
		"\r\n" +
		"EDIT,AA200,JFK,ORD,16/06/2024,10:00\n"

	rows, err := ParseFeed(text)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Line)
	assert.True(t, rows[0].Complete())
	assert.Equal(t, "ADD", rows[0].Operation())
	assert.Equal(t, "AA100", rows[0].FlightNumber())
	assert.Equal(t, "300", rows[0].PriceText())

	assert.False(t, rows[1].Complete())
	assert.False(t, rows[2].Complete())
	assert.Equal(t, "", rows[2].PriceText())
}

func TestParseFeed_HeaderOnly(t *testing.T) {
	rows, err := ParseFeed("Operation,Flight,From,To,Date,Time,Price\n")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseFeed_Empty(t *testing.T) {
	_, err := ParseFeed("")
	assert.ErrorIs(t, err, domain.ErrEmptyFeed)
}

func TestFeedRow_EmbeddedCommaSplits(t *testing.T) {
	rows, err := ParseFeed("h\nADD,AA1,JFK,LAX,15/06/2024,09:30,\"1,000\"\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Fields, 8)
	assert.Equal(t, `"1`, rows[0].PriceText())
}

func TestParseFeed_LongLine(t *testing.T) {
	long := "ADD,AA1," + strings.Repeat("X", 2<<20)
	rows, err := ParseFeed("h\n" + long + "\nADD,AA2,JFK,LAX,15/06/2024,09:30,300\n")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.False(t, rows[0].Complete())
	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, "AA2", rows[1].FlightNumber())
}
