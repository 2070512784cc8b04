package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/Domenick1991/flightengine/config"
	"github.com/Domenick1991/flightengine/internal/repository"
	"github.com/Domenick1991/flightengine/internal/repository/memory"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage bundles the repositories for the configured database driver.
type Storage struct {
	Catalog   repository.CatalogRepository
	Schedules repository.ScheduleRepository
	Tickets   repository.TicketRepository
	// Ping is nil for the in-memory driver.
	Ping  func(ctx context.Context) error
	close func()
}

func OpenStorage(ctx context.Context, cfg config.DatabaseConfig) (*Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		if cfg.SeedFile != "" {
			var err error
			if store, err = memory.LoadSeed(cfg.SeedFile); err != nil {
				return nil, err
			}
		} else {
			log.Printf("WARNING: in-memory storage without seed_file starts empty")
		}
		return &Storage{Catalog: store, Schedules: store, Tickets: store, close: func() {}}, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &Storage{
			Catalog:   repository.NewCatalogRepository(pool),
			Schedules: repository.NewScheduleRepository(pool),
			Tickets:   repository.NewTicketRepository(pool),
			Ping:      pool.Ping,
			close:     pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func (s *Storage) Close() {
	s.close()
}
