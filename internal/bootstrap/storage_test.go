package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Domenick1991/flightengine/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorage_Memory(t *testing.T) {
	s, err := OpenStorage(context.Background(), config.DatabaseConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Ping)
	airports, err := s.Catalog.ListAirports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, airports)
}

func TestOpenStorage_MemorySeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
airports:
  - code: JFK
    name: New York
  - code: LAX
    name: Los Angeles
`), 0o600))

	s, err := OpenStorage(context.Background(), config.DatabaseConfig{Driver: config.DriverMemory, SeedFile: path})
	require.NoError(t, err)
	defer s.Close()

	airports, err := s.Catalog.ListAirports(context.Background())
	require.NoError(t, err)
	assert.Len(t, airports, 2)
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	_, err := OpenStorage(context.Background(), config.DatabaseConfig{Driver: "sqlite"})
	assert.Error(t, err)
}
