package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"trainer-booking/api"
	"trainer-booking/internal/models"
	"trainer-booking/internal/notify"
	"trainer-booking/pkg/response"

	"github.com/google/uuid"
)

// Appointments

// UpdateAppointmentParams is a partial update. RequesterEmail identifies a
// client; AsAdmin is set only for requests carrying a valid admin session.
type UpdateAppointmentParams struct {
	TimeSlotID     *string
	Status         *string
	RequesterEmail *string
	AsAdmin        bool
}

// CreateAppointment books a bookable slot and reserves the earliest open
// slot on or after its date as fallback. The slot check, fallback choice
// and insert share one transaction.
func (s *Service) CreateAppointment(ctx context.Context, req *api.AppointmentCreateRequest) (*api.AppointmentResponse, error) {
	const op = "service.CreateAppointment"

	email, err := s.normalizeEmail("client_email", req.ClientEmail)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := uuid.Validate(req.TimeSlotID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, response.FieldErrors{"time_slot_id": "must be a valid uuid"})
	}

	unlock, err := s.lockSlot(ctx, req.TimeSlotID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	slot, err := tx.LockTimeSlot(ctx, req.TimeSlotID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !slot.Bookable() {
		return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
	}

	fallback, err := s.findFallback(ctx, tx, slot)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	appt := &models.Appointment{
		ID:          uuid.NewString(),
		ClientEmail: email,
		ClientName:  cleanName(req.ClientName),
		TimeSlotID:  slot.ID,
		Status:      models.AppointmentScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
		TimeSlot:    slot,
		Fallback:    fallback,
	}
	if fallback != nil {
		appt.FallbackID = &fallback.ID
	}

	if err := tx.CreateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("%s: create appointment: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	slot.Booked = true

	s.log.Info("appointment created",
		slog.String("appointment_id", appt.ID),
		slog.String("time_slot_id", appt.TimeSlotID),
		slog.Bool("has_fallback", fallback != nil),
	)

	data := s.bookingData(appt)
	msg, err := notify.BookingConfirmation(data)
	s.send(ctx, msg, err)
	msg, err = notify.BookingAlert(s.cfg.AdminEmail, data)
	s.send(ctx, msg, err)

	return toAppointmentResponse(appt), nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (*api.AppointmentResponse, error) {
	const op = "service.GetAppointment"

	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toAppointmentResponse(appt), nil
}

// ListAppointments returns active appointments, newest first, for every
// client (admin view) or for one client email.
func (s *Service) ListAppointments(ctx context.Context, clientEmail *string) ([]*api.AppointmentResponse, error) {
	const op = "service.ListAppointments"

	var filter models.AppointmentFilter
	if clientEmail != nil {
		email, err := s.normalizeEmail("email", *clientEmail)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		filter.ClientEmail = &email
	}

	appts, err := s.store.ListAppointments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.AppointmentResponse, 0, len(appts))
	for _, appt := range appts {
		if !appt.Status.Active() {
			continue
		}
		result = append(result, toAppointmentResponse(appt))
	}

	return result, nil
}

// UpdateAppointment swaps the primary slot and/or changes the status in
// place. A primary swap recomputes the fallback from the new slot.
func (s *Service) UpdateAppointment(ctx context.Context, id string, params UpdateAppointmentParams) (*api.AppointmentResponse, error) {
	const op = "service.UpdateAppointment"

	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	var status *models.AppointmentStatus
	if params.Status != nil {
		st := models.AppointmentStatus(strings.ToLower(strings.TrimSpace(*params.Status)))
		if !st.Valid() {
			return nil, fmt.Errorf("%s: %w", op, response.FieldErrors{"status": "must be one of [scheduled rescheduled cancelled completed]"})
		}
		status = &st
	}

	if params.TimeSlotID != nil {
		if err := uuid.Validate(*params.TimeSlotID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, response.FieldErrors{"time_slot_id": "must be a valid uuid"})
		}

		unlock, err := s.lockSlot(ctx, *params.TimeSlotID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		defer unlock()
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	appt, err := tx.GetAppointmentForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if status != nil && *status == models.AppointmentCancelled && !params.AsAdmin {
		if params.RequesterEmail == nil || !strings.EqualFold(strings.TrimSpace(*params.RequesterEmail), appt.ClientEmail) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrForbidden)
		}
	}

	rescheduled := false
	if params.TimeSlotID != nil && *params.TimeSlotID != appt.TimeSlotID {
		slot, err := tx.LockTimeSlot(ctx, *params.TimeSlotID)
		if err != nil {
			return nil, fmt.Errorf("%s: new slot: %w", op, err)
		}
		if !slot.Bookable() {
			return nil, fmt.Errorf("%s: %w", op, response.ErrSlotNotAvailable)
		}

		fallback, err := s.findFallback(ctx, tx, slot)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		slot.Booked = true
		appt.TimeSlotID = slot.ID
		appt.TimeSlot = slot
		appt.FallbackID = nil
		appt.Fallback = fallback
		if fallback != nil {
			appt.FallbackID = &fallback.ID
		}
		rescheduled = true
	}

	cancelled := false
	if status != nil {
		cancelled = *status == models.AppointmentCancelled && appt.Status != models.AppointmentCancelled
		appt.Status = *status
	}
	appt.UpdatedAt = s.now().UTC()

	if err := tx.UpdateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("%s: update appointment: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	s.log.Info("appointment updated",
		slog.String("appointment_id", appt.ID),
		slog.String("status", string(appt.Status)),
		slog.Bool("rescheduled", rescheduled),
	)

	switch {
	case cancelled:
		msg, err := notify.Cancelled(s.bookingData(appt))
		s.send(ctx, msg, err)
	case rescheduled:
		msg, err := notify.Rescheduled(s.bookingData(appt))
		s.send(ctx, msg, err)
	}

	return toAppointmentResponse(appt), nil
}

// CancelAppointment cancels unconditionally. Cancelling twice is a no-op.
func (s *Service) CancelAppointment(ctx context.Context, id string) error {
	const op = "service.CancelAppointment"

	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	appt, err := tx.GetAppointmentForUpdate(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if appt.Status == models.AppointmentCancelled {
		return nil
	}

	appt.Status = models.AppointmentCancelled
	appt.UpdatedAt = s.now().UTC()

	if err := tx.UpdateAppointment(ctx, appt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	s.log.Info("appointment cancelled", slog.String("appointment_id", appt.ID))

	msg, err := notify.Cancelled(s.bookingData(appt))
	s.send(ctx, msg, err)

	return nil
}

func (s *Service) bookingData(appt *models.Appointment) notify.BookingData {
	data := notify.BookingData{
		ClientEmail:     appt.ClientEmail,
		AppointmentsURL: fmt.Sprintf("%s/appointments/%s", s.cfg.AppURL, url.PathEscape(appt.ClientEmail)),
	}
	if appt.ClientName != nil {
		data.ClientName = *appt.ClientName
	}
	if appt.TimeSlot != nil {
		data.Primary = slotView(appt.TimeSlot)
	}
	if appt.Fallback != nil {
		v := slotView(appt.Fallback)
		data.Fallback = &v
	}

	return data
}

func slotView(slot *models.TimeSlot) notify.SlotView {
	return notify.SlotView{
		Date:      slot.Date.Format("02/01/2006"),
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
	}
}

func cleanName(name *string) *string {
	if name == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}

func toAppointmentResponse(appt *models.Appointment) *api.AppointmentResponse {
	return &api.AppointmentResponse{
		ID:          appt.ID,
		ClientEmail: appt.ClientEmail,
		ClientName:  appt.ClientName,
		TimeSlotID:  appt.TimeSlotID,
		FallbackID:  appt.FallbackID,
		Status:      string(appt.Status),
		TimeSlot:    toTimeSlotResponse(appt.TimeSlot),
		Fallback:    toTimeSlotResponse(appt.Fallback),
		CreatedAt:   appt.CreatedAt,
		UpdatedAt:   appt.UpdatedAt,
	}
}
