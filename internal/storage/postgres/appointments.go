package postgres

import (
	"context"
	"errors"
	"fmt"

	"trainer-booking/internal/models"
	"trainer-booking/pkg/response"

	"github.com/lib/pq"
)

const appointmentColumns = `id, client_email, client_name, time_slot_id, fallback_time_slot_id, status, created_at, updated_at`

func scanAppointment(row scanner) (*models.Appointment, error) {
	var appt models.Appointment

	err := row.Scan(
		&appt.ID,
		&appt.ClientEmail,
		&appt.ClientName,
		&appt.TimeSlotID,
		&appt.FallbackID,
		&appt.Status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &appt, nil
}

// attachSlots fills TimeSlot and Fallback on each appointment.
func attachSlots(ctx context.Context, q querier, appts []*models.Appointment) error {
	ids := make([]string, 0, len(appts)*2)
	for _, appt := range appts {
		ids = append(ids, appt.TimeSlotID)
		if appt.FallbackID != nil {
			ids = append(ids, *appt.FallbackID)
		}
	}

	slots, err := slotsByID(ctx, q, ids)
	if err != nil {
		return err
	}

	for _, appt := range appts {
		appt.TimeSlot = slots[appt.TimeSlotID]
		if appt.FallbackID != nil {
			appt.Fallback = slots[*appt.FallbackID]
		}
	}

	return nil
}

func (s *Storage) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	const op = "storage.postgres.GetAppointment"

	row := s.db.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, storageErr(op, err)
	}

	if err := attachSlots(ctx, s.db, []*models.Appointment{appt}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appt, nil
}

func (s *Storage) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error) {
	const op = "storage.postgres.ListAppointments"

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE status <> 'cancelled'`
	args := []any{}
	if filter.ClientEmail != nil {
		query += ` AND client_email = $1`
		args = append(args, *filter.ClientEmail)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var appts []*models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		appts = append(appts, appt)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}

	if err := attachSlots(ctx, s.db, appts); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appts, nil
}

func (t *Tx) GetAppointmentForUpdate(ctx context.Context, id string) (*models.Appointment, error) {
	const op = "storage.postgres.GetAppointmentForUpdate"

	row := t.tx.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, storageErr(op, err)
	}

	if err := attachSlots(ctx, t.tx, []*models.Appointment{appt}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appt, nil
}

func (t *Tx) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	const op = "storage.postgres.CreateAppointment"

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		appt.ID,
		appt.ClientEmail,
		appt.ClientName,
		appt.TimeSlotID,
		appt.FallbackID,
		string(appt.Status),
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		return appointmentWriteErr(op, err)
	}

	return nil
}

func (t *Tx) UpdateAppointment(ctx context.Context, appt *models.Appointment) error {
	const op = "storage.postgres.UpdateAppointment"

	res, err := t.tx.ExecContext(ctx,
		`UPDATE appointments
		SET time_slot_id = $2, fallback_time_slot_id = $3, status = $4, updated_at = $5
		WHERE id = $1`,
		appt.ID,
		appt.TimeSlotID,
		appt.FallbackID,
		string(appt.Status),
		appt.UpdatedAt,
	)
	if err != nil {
		return appointmentWriteErr(op, err)
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

// appointmentWriteErr maps the active-slot unique index to a slot conflict.
func appointmentWriteErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation {
		return fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	return storageErr(op, err)
}
