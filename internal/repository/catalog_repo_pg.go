package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGCatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) CatalogRepository {
	return &PGCatalogRepository{db: db}
}

func (r *PGCatalogRepository) FindAirportByCode(ctx context.Context, code string) (*domain.Airport, error) {
	row := r.db.QueryRow(ctx, `SELECT id, iata_code, name, COALESCE(country_id, 0) FROM airports WHERE iata_code=$1`, strings.ToUpper(strings.TrimSpace(code)))
	var a domain.Airport
	if err := row.Scan(&a.ID, &a.IATACode, &a.Name, &a.CountryID); err != nil {
		return nil, notFound(err, "find airport")
	}
	return &a, nil
}

func (r *PGCatalogRepository) FindRoute(ctx context.Context, fromAirportID, toAirportID int64) (*domain.Route, error) {
	row := r.db.QueryRow(ctx, `SELECT r.id, r.departure_airport_id, r.arrival_airport_id, da.iata_code, aa.iata_code, r.distance, r.flight_time
		FROM routes r
		JOIN airports da ON da.id = r.departure_airport_id
		JOIN airports aa ON aa.id = r.arrival_airport_id
		WHERE r.departure_airport_id=$1 AND r.arrival_airport_id=$2
		ORDER BY r.id
		LIMIT 1`, fromAirportID, toAirportID)
	var rt domain.Route
	if err := row.Scan(&rt.ID, &rt.DepartureAirportID, &rt.ArrivalAirportID, &rt.DepartureCode, &rt.ArrivalCode, &rt.Distance, &rt.FlightTime); err != nil {
		return nil, notFound(err, "find route")
	}
	return &rt, nil
}

func (r *PGCatalogRepository) ListAirports(ctx context.Context) ([]domain.Airport, error) {
	rows, err := r.db.Query(ctx, `SELECT id, iata_code, name, COALESCE(country_id, 0) FROM airports ORDER BY iata_code`)
	if err != nil {
		return nil, fmt.Errorf("list airports: %w", err)
	}
	defer rows.Close()

	airports := make([]domain.Airport, 0)
	for rows.Next() {
		var a domain.Airport
		if err := rows.Scan(&a.ID, &a.IATACode, &a.Name, &a.CountryID); err != nil {
			return nil, err
		}
		airports = append(airports, a)
	}
	return airports, rows.Err()
}

func (r *PGCatalogRepository) FindCabinType(ctx context.Context, class domain.CabinClass) (*domain.CabinType, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name FROM cabin_types WHERE lower(name)=lower($1) ORDER BY id LIMIT 1`, string(class))
	var ct domain.CabinType
	if err := row.Scan(&ct.ID, &ct.Name); err != nil {
		return nil, notFound(err, "find cabin type")
	}
	ct.Class = class
	return &ct, nil
}

func (r *PGCatalogRepository) ListCabinTypes(ctx context.Context) ([]domain.CabinType, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM cabin_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cabin types: %w", err)
	}
	defer rows.Close()

	types := make([]domain.CabinType, 0)
	for rows.Next() {
		var ct domain.CabinType
		if err := rows.Scan(&ct.ID, &ct.Name); err != nil {
			return nil, err
		}
		ct.Class = domain.CabinClassFromName(ct.Name)
		types = append(types, ct)
	}
	return types, rows.Err()
}

func (r *PGCatalogRepository) FirstAvailableAircraft(ctx context.Context) (*domain.Aircraft, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, make_model, total_seats, economy_seats, business_seats FROM aircrafts ORDER BY id LIMIT 1`)
	var a domain.Aircraft
	if err := row.Scan(&a.ID, &a.Name, &a.MakeModel, &a.TotalSeats, &a.EconomySeats, &a.BusinessSeats); err != nil {
		return nil, notFound(err, "find aircraft")
	}
	return &a, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ CatalogRepository = (*PGCatalogRepository)(nil)
