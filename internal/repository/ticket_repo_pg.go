package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGTicketRepository struct {
	db *pgxpool.Pool
}

func NewTicketRepository(db *pgxpool.Pool) TicketRepository {
	return &PGTicketRepository{db: db}
}

const insertTicket = `INSERT INTO tickets (user_id, schedule_id, cabin_type_id, firstname, lastname, email, phone,
	passport_number, passport_country_id, booking_reference, confirmed)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, 0), $10, $11)
	RETURNING id, created_at`

func (r *PGTicketRepository) CreateBooking(ctx context.Context, b *NewBooking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// the row lock serialises concurrent bookings on this flight until commit
	var id int64
	if err := tx.QueryRow(ctx, `SELECT id FROM schedules WHERE id=$1 FOR UPDATE`, b.FlightID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrFlightNotFound
		}
		return fmt.Errorf("lock schedule %d: %w", b.FlightID, err)
	}

	var existing int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE schedule_id=$1 AND cabin_type_id=$2`, b.FlightID, b.CabinTypeID).Scan(&existing); err != nil {
		return fmt.Errorf("count tickets: %w", err)
	}
	if existing+len(b.Tickets) > b.Capacity {
		return domain.ErrInsufficientSeats
	}

	batch := &pgx.Batch{}
	for _, t := range b.Tickets {
		p := t.Passenger
		batch.Queue(insertTicket, t.UserID, b.FlightID, b.CabinTypeID, p.FirstName, p.LastName, p.Email, p.Phone,
			p.PassportNumber, p.PassportCountryID, t.BookingReference, t.Confirmed)
	}
	results := tx.SendBatch(ctx, batch)
	for i := range b.Tickets {
		if err := results.QueryRow().Scan(&b.Tickets[i].ID, &b.Tickets[i].CreatedAt); err != nil {
			results.Close()
			return fmt.Errorf("insert ticket %d: %w", i+1, err)
		}
		b.Tickets[i].FlightID = b.FlightID
		b.Tickets[i].CabinTypeID = b.CabinTypeID
	}
	if err := results.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGTicketRepository) CountByFlightAndCabin(ctx context.Context, flightID, cabinTypeID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE schedule_id=$1 AND cabin_type_id=$2`, flightID, cabinTypeID).Scan(&n)
	return n, err
}

func (r *PGTicketRepository) ListByReference(ctx context.Context, reference string) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, schedule_id, cabin_type_id, firstname, lastname, COALESCE(email, ''), COALESCE(phone, ''),
		passport_number, COALESCE(passport_country_id, 0), booking_reference, confirmed, created_at
		FROM tickets WHERE booking_reference=$1 ORDER BY id`, reference)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		var t domain.Ticket
		p := &t.Passenger
		if err := rows.Scan(&t.ID, &t.UserID, &t.FlightID, &t.CabinTypeID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
			&p.PassportNumber, &p.PassportCountryID, &t.BookingReference, &t.Confirmed, &t.CreatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

var _ TicketRepository = (*PGTicketRepository)(nil)
