package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trainer-booking/internal/models"
	"trainer-booking/pkg/response"

	"github.com/lib/pq"
)

const slotColumns = `s.id, to_char(s.date, 'YYYY-MM-DD'), to_char(s.start_time, 'HH24:MI'),
	to_char(s.end_time, 'HH24:MI'), s.duration, s.is_blocked, s.created_at, s.updated_at`

// bookedExpr derives occupancy; it is never stored.
const bookedExpr = `EXISTS (SELECT 1 FROM appointments a WHERE a.time_slot_id = s.id AND a.status <> 'cancelled')`

type scanner interface {
	Scan(dest ...any) error
}

func scanSlot(row scanner, withBooked bool) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	var date string

	dest := []any{
		&slot.ID, &date, &slot.StartTime, &slot.EndTime,
		&slot.DurationMinutes, &slot.IsBlocked, &slot.CreatedAt, &slot.UpdatedAt,
	}
	if withBooked {
		dest = append(dest, &slot.Booked)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	day, err := parseDay(date)
	if err != nil {
		return nil, err
	}
	slot.Date = day

	return &slot, nil
}

func (s *Storage) GetTimeSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	const op = "storage.postgres.GetTimeSlot"

	row := s.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+`, `+bookedExpr+` FROM time_slots s WHERE s.id = $1`, id)

	slot, err := scanSlot(row, true)
	if err != nil {
		return nil, storageErr(op, err)
	}

	return slot, nil
}

func (s *Storage) ListTimeSlots(ctx context.Context, date *time.Time) ([]*models.TimeSlot, error) {
	const op = "storage.postgres.ListTimeSlots"

	query := `SELECT ` + slotColumns + `, ` + bookedExpr + ` FROM time_slots s`
	args := []any{}
	if date != nil {
		query += ` WHERE s.date = $1`
		args = append(args, date.Format(models.DateLayout))
	}
	query += ` ORDER BY s.date, s.start_time, s.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var slots []*models.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows, true)
		if err != nil {
			return nil, storageErr(op, err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}

	return slots, nil
}

func (s *Storage) CreateTimeSlot(ctx context.Context, slot *models.TimeSlot) error {
	const op = "storage.postgres.CreateTimeSlot"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO time_slots (id, date, start_time, end_time, duration, is_blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		slot.ID,
		slot.Date.Format(models.DateLayout),
		slot.StartTime,
		slot.EndTime,
		slot.DurationMinutes,
		slot.IsBlocked,
		slot.CreatedAt,
		slot.UpdatedAt,
	)
	if err != nil {
		return storageErr(op, err)
	}

	return nil
}

func (s *Storage) UpdateTimeSlot(ctx context.Context, slot *models.TimeSlot) error {
	const op = "storage.postgres.UpdateTimeSlot"

	res, err := s.db.ExecContext(ctx,
		`UPDATE time_slots
		SET date = $2, start_time = $3, end_time = $4, duration = $5, is_blocked = $6, updated_at = $7
		WHERE id = $1`,
		slot.ID,
		slot.Date.Format(models.DateLayout),
		slot.StartTime,
		slot.EndTime,
		slot.DurationMinutes,
		slot.IsBlocked,
		slot.UpdatedAt,
	)
	if err != nil {
		return storageErr(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// LockTimeSlot takes a row lock, then reads occupancy in a separate
// statement so the check sees appointments committed while it waited.
func (t *Tx) LockTimeSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	const op = "storage.postgres.LockTimeSlot"

	row := t.tx.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM time_slots s WHERE s.id = $1 FOR UPDATE`, id)

	slot, err := scanSlot(row, false)
	if err != nil {
		return nil, storageErr(op, err)
	}

	err = t.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM appointments WHERE time_slot_id = $1 AND status <> 'cancelled')`, id).
		Scan(&slot.Booked)
	if err != nil {
		return nil, storageErr(op, err)
	}

	return slot, nil
}

func (t *Tx) ListOpenTimeSlots(ctx context.Context, from time.Time, limit int) ([]*models.TimeSlot, error) {
	const op = "storage.postgres.ListOpenTimeSlots"

	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM time_slots s
		WHERE s.is_blocked = FALSE
		AND s.date >= $1
		AND NOT `+bookedExpr+`
		ORDER BY s.date, s.start_time, s.id
		LIMIT $2`,
		from.Format(models.DateLayout),
		limit,
	)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var slots []*models.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows, false)
		if err != nil {
			return nil, storageErr(op, err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}

	return slots, nil
}

func (t *Tx) TimeSlotInUse(ctx context.Context, id string) (bool, error) {
	const op = "storage.postgres.TimeSlotInUse"

	var inUse bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE (time_slot_id = $1 OR fallback_time_slot_id = $1)
			AND status <> 'cancelled'
		)`, id).Scan(&inUse)
	if err != nil {
		return false, storageErr(op, err)
	}

	return inUse, nil
}

// DeleteTimeSlot fails with ErrConflict while cancelled appointments still
// reference the slot as primary; that history is kept.
func (t *Tx) DeleteTimeSlot(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteTimeSlot"

	res, err := t.tx.ExecContext(ctx, `DELETE FROM time_slots WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation {
			return fmt.Errorf("%s: slot has appointment history: %w", op, response.ErrConflict)
		}
		return storageErr(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

func slotsByID(ctx context.Context, q querier, ids []string) (map[string]*models.TimeSlot, error) {
	const op = "storage.postgres.slotsByID"

	out := make(map[string]*models.TimeSlot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+slotColumns+`, `+bookedExpr+` FROM time_slots s WHERE s.id = ANY($1::uuid[])`,
		pq.Array(ids))
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		slot, err := scanSlot(rows, true)
		if err != nil {
			return nil, storageErr(op, err)
		}
		out[slot.ID] = slot
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}

	return out, nil
}
