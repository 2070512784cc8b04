package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const flightSelect = `SELECT s.id, s.route_id, s.aircraft_id, s.date, s.time, s.flight_number, s.economy_price, s.confirmed,
	r.departure_airport_id, r.arrival_airport_id, da.iata_code, aa.iata_code, r.distance, r.flight_time,
	a.name, a.make_model, a.total_seats, a.economy_seats, a.business_seats
FROM schedules s
JOIN routes r ON r.id = s.route_id
JOIN airports da ON da.id = r.departure_airport_id
JOIN airports aa ON aa.id = r.arrival_airport_id
JOIN aircrafts a ON a.id = s.aircraft_id`

type PGScheduleRepository struct {
	db *pgxpool.Pool
}

func NewScheduleRepository(db *pgxpool.Pool) ScheduleRepository {
	return &PGScheduleRepository{db: db}
}

func (r *PGScheduleRepository) GetByID(ctx context.Context, id int64) (*domain.FlightInstance, error) {
	return getFlight(ctx, r.db, id)
}

func (r *PGScheduleRepository) Find(ctx context.Context, q FlightQuery) ([]domain.FlightInstance, error) {
	var w where
	w.add("r.departure_airport_id = $%d", q.DepartureAirportID)
	if q.ArrivalAirportID != 0 {
		w.add("r.arrival_airport_id = $%d", q.ArrivalAirportID)
	}
	w.add("s.date >= $%d", q.DateFrom)
	w.add("s.date <= $%d", q.DateTo)
	if q.DepartsAfter != nil {
		w.add("s.time > $%d", clock(*q.DepartsAfter))
	}
	if q.ConfirmedOnly {
		w.conds = append(w.conds, "s.confirmed")
	}
	return queryFlights(ctx, r.db, flightSelect+w.sql()+" ORDER BY s.date, s.time, s.id", w.args...)
}

func (r *PGScheduleRepository) List(ctx context.Context, f ScheduleFilter) ([]domain.FlightInstance, error) {
	var w where
	if f.DepartureAirportID != 0 {
		w.add("r.departure_airport_id = $%d", f.DepartureAirportID)
	}
	if f.ArrivalAirportID != 0 {
		w.add("r.arrival_airport_id = $%d", f.ArrivalAirportID)
	}
	if f.Date != nil {
		w.add("s.date = $%d", *f.Date)
	}
	if f.FlightNumber != "" {
		w.add("s.flight_number LIKE $%d", "%"+f.FlightNumber+"%")
	}

	order := " ORDER BY s.date, s.time, s.id"
	switch f.SortBy {
	case SortByEconomyPrice:
		order = " ORDER BY s.economy_price, s.id"
	case SortByConfirmed:
		order = " ORDER BY s.confirmed DESC, s.id"
	}
	return queryFlights(ctx, r.db, flightSelect+w.sql()+order, w.args...)
}

func (r *PGScheduleRepository) UpdateTiming(ctx context.Context, id int64, date time.Time, departure time.Duration, economyPrice float64) (*domain.FlightInstance, error) {
	if err := updateTiming(ctx, r.db, id, date, departure, economyPrice); err != nil {
		return nil, err
	}
	return getFlight(ctx, r.db, id)
}

func (r *PGScheduleRepository) ToggleConfirmed(ctx context.Context, id int64) (*domain.FlightInstance, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE schedules SET confirmed = NOT confirmed WHERE id=$1`, id)
	if err != nil {
		return nil, fmt.Errorf("toggle schedule %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return getFlight(ctx, r.db, id)
}

func (r *PGScheduleRepository) InTx(ctx context.Context, fn func(tx ScheduleTx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgScheduleTx{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgScheduleTx struct {
	q querier
}

func (t *pgScheduleTx) FindByNumberDateRoute(ctx context.Context, flightNumber string, date time.Time, routeID int64) (*domain.FlightInstance, error) {
	return firstFlight(ctx, t.q, flightSelect+` WHERE s.flight_number=$1 AND s.date=$2 AND s.route_id=$3 ORDER BY s.id LIMIT 1`, flightNumber, date, routeID)
}

func (t *pgScheduleTx) FindByNumberRoute(ctx context.Context, flightNumber string, routeID int64) (*domain.FlightInstance, error) {
	return firstFlight(ctx, t.q, flightSelect+` WHERE s.flight_number=$1 AND s.route_id=$2 ORDER BY s.id LIMIT 1`, flightNumber, routeID)
}

func (t *pgScheduleTx) Create(ctx context.Context, f *domain.FlightInstance) error {
	return t.q.QueryRow(ctx, `INSERT INTO schedules (route_id, aircraft_id, date, time, flight_number, economy_price, confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`, f.RouteID, f.AircraftID, f.Date, clock(f.DepartureTime), f.FlightNumber, f.EconomyPrice, f.Confirmed).
		Scan(&f.ID)
}

func (t *pgScheduleTx) UpdateTiming(ctx context.Context, id int64, date time.Time, departure time.Duration, economyPrice float64) error {
	return updateTiming(ctx, t.q, id, date, departure, economyPrice)
}

func updateTiming(ctx context.Context, q querier, id int64, date time.Time, departure time.Duration, economyPrice float64) error {
	cmd, err := q.Exec(ctx, `UPDATE schedules SET date=$1, time=$2, economy_price=$3 WHERE id=$4`, date, clock(departure), economyPrice, id)
	if err != nil {
		return fmt.Errorf("update schedule %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func getFlight(ctx context.Context, q querier, id int64) (*domain.FlightInstance, error) {
	return firstFlight(ctx, q, flightSelect+` WHERE s.id=$1`, id)
}

func firstFlight(ctx context.Context, q querier, sql string, args ...any) (*domain.FlightInstance, error) {
	f, err := scanFlight(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func queryFlights(ctx context.Context, q querier, sql string, args ...any) ([]domain.FlightInstance, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	flights := make([]domain.FlightInstance, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func scanFlight(row pgx.Row) (*domain.FlightInstance, error) {
	var (
		f   domain.FlightInstance
		dep pgtype.Time
	)
	err := row.Scan(&f.ID, &f.RouteID, &f.AircraftID, &f.Date, &dep, &f.FlightNumber, &f.EconomyPrice, &f.Confirmed,
		&f.Route.DepartureAirportID, &f.Route.ArrivalAirportID, &f.Route.DepartureCode, &f.Route.ArrivalCode, &f.Route.Distance, &f.Route.FlightTime,
		&f.Aircraft.Name, &f.Aircraft.MakeModel, &f.Aircraft.TotalSeats, &f.Aircraft.EconomySeats, &f.Aircraft.BusinessSeats)
	if err != nil {
		return nil, err
	}
	f.Route.ID = f.RouteID
	f.Aircraft.ID = f.AircraftID
	f.Date = domain.TruncateDate(f.Date)
	f.DepartureTime = time.Duration(dep.Microseconds) * time.Microsecond
	return &f, nil
}

func clock(d time.Duration) pgtype.Time {
	return pgtype.Time{Microseconds: d.Microseconds(), Valid: true}
}

type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, v any) {
	w.args = append(w.args, v)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var _ ScheduleRepository = (*PGScheduleRepository)(nil)
