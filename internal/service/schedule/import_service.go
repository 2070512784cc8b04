package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/kafka"
	"github.com/Domenick1991/flightengine/internal/repository"
	"github.com/google/uuid"
)

// ImportResult counts how each feed row was classified. Unrecognized rows
// passed validation but named an operation other than ADD or EDIT.
type ImportResult struct {
	BatchID      string     `json:"batch_id"`
	Success      int        `json:"success"`
	Duplicates   int        `json:"duplicates"`
	Invalid      int        `json:"invalid"`
	Unrecognized int        `json:"unrecognized"`
	Rejected     []RowIssue `json:"rejected,omitempty"`
}

type RowIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type outcome int

const (
	rowSuccess outcome = iota
	rowDuplicate
	rowInvalid
	rowUnrecognized
)

// rowResult is a classified row; reason is only set for invalid rows.
type rowResult struct {
	outcome outcome
	reason  string
}

func invalid(format string, args ...interface{}) rowResult {
	return rowResult{outcome: rowInvalid, reason: fmt.Sprintf(format, args...)}
}

// ImportChanges reconciles a schedule feed against the registry in a single
// transaction. Row problems are counted and skipped; a storage failure rolls
// back the whole batch.
func (s *ScheduleService) ImportChanges(ctx context.Context, text string) (*ImportResult, error) {
	rows, err := ParseFeed(text)
	if err != nil {
		return nil, err
	}

	var result *ImportResult
	err = s.schedules.InTx(ctx, func(tx repository.ScheduleTx) error {
		result = &ImportResult{BatchID: uuid.NewString()}

		aircraft, err := s.catalog.FirstAvailableAircraft(ctx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("find aircraft: %w", err)
		}

		for _, row := range rows {
			res, err := s.applyRow(ctx, tx, row, aircraft)
			if err != nil {
				return fmt.Errorf("line %d: %w", row.Line, err)
			}
			switch res.outcome {
			case rowSuccess:
				result.Success++
			case rowDuplicate:
				result.Duplicates++
			case rowUnrecognized:
				result.Unrecognized++
			case rowInvalid:
				result.Invalid++
				result.Rejected = append(result.Rejected, RowIssue{Line: row.Line, Reason: res.reason})
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewPersistenceError("import schedule batch", err)
	}

	log.Printf("schedule import %s: success=%d duplicates=%d invalid=%d unrecognized=%d",
		result.BatchID, result.Success, result.Duplicates, result.Invalid, result.Unrecognized)

	if result.Success > 0 {
		s.invalidate(ctx)
	}
	s.publish(ctx, result.BatchID, kafka.ScheduleEvent{
		ID:         uuid.NewString(),
		Type:       kafka.EventScheduleImported,
		BatchID:    result.BatchID,
		Success:    result.Success,
		Duplicates: result.Duplicates,
		Invalid:    result.Invalid,
		CreatedAt:  time.Now(),
	})
	return result, nil
}

// applyRow validates row and applies it to tx. The returned error is only
// set for storage failures.
func (s *ScheduleService) applyRow(ctx context.Context, tx repository.ScheduleTx, row FeedRow, aircraft *domain.Aircraft) (rowResult, error) {
	if !row.Complete() {
		return invalid("expected %d non-empty fields", feedFields), nil
	}

	from, err := s.catalog.FindAirportByCode(ctx, row.FromCode())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return invalid("unknown airport %q", row.FromCode()), nil
		}
		return rowResult{}, err
	}
	to, err := s.catalog.FindAirportByCode(ctx, row.ToCode())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return invalid("unknown airport %q", row.ToCode()), nil
		}
		return rowResult{}, err
	}

	date, err := domain.ParseDate(row.DateText())
	if err != nil {
		return invalid("bad date %q", row.DateText()), nil
	}
	departure, err := domain.ParseClock(row.TimeText())
	if err != nil {
		return invalid("bad time %q", row.TimeText()), nil
	}
	price, err := strconv.ParseFloat(row.PriceText(), 64)
	if err != nil || !validPrice(price) {
		return invalid("bad price %q", row.PriceText()), nil
	}

	route, err := s.catalog.FindRoute(ctx, from.ID, to.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return invalid("no route %s-%s", from.IATACode, to.IATACode), nil
		}
		return rowResult{}, err
	}
	if aircraft == nil {
		return invalid("no aircraft available"), nil
	}

	number := row.FlightNumber()
	switch strings.ToUpper(row.Operation()) {
	case OpAdd:
		_, err := tx.FindByNumberDateRoute(ctx, number, date, route.ID)
		if err == nil {
			return rowResult{outcome: rowDuplicate}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return rowResult{}, err
		}
		f := &domain.FlightInstance{
			RouteID:       route.ID,
			AircraftID:    aircraft.ID,
			Date:          date,
			DepartureTime: departure,
			FlightNumber:  number,
			EconomyPrice:  price,
			Confirmed:     true,
		}
		if err := tx.Create(ctx, f); err != nil {
			return rowResult{}, err
		}
		return rowResult{outcome: rowSuccess}, nil

	case OpEdit:
		existing, err := tx.FindByNumberRoute(ctx, number, route.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return invalid("no flight %s on route %s-%s to edit", number, from.IATACode, to.IATACode), nil
			}
			return rowResult{}, err
		}
		if err := tx.UpdateTiming(ctx, existing.ID, date, departure, price); err != nil {
			return rowResult{}, err
		}
		return rowResult{outcome: rowSuccess}, nil
	}
	return rowResult{outcome: rowUnrecognized}, nil
}
