package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"trainer-booking/api"
	"trainer-booking/internal/models"
	"trainer-booking/pkg/response"

	"github.com/google/uuid"
)

// Time slots

func (s *Service) GetTimeSlot(ctx context.Context, id string) (*api.TimeSlotResponse, error) {
	const op = "service.GetTimeSlot"

	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	slot, err := s.store.GetTimeSlot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toTimeSlotResponse(slot), nil
}

// ListTimeSlots returns slots ordered by (date, start time), optionally for
// one day. Availability is recomputed from appointments on every call.
func (s *Service) ListTimeSlots(ctx context.Context, date *string) ([]*api.TimeSlotResponse, error) {
	const op = "service.ListTimeSlots"

	var day *time.Time
	if date != nil && *date != "" {
		d, err := parseDate(*date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, response.FieldErrors{"date": "must match layout 2006-01-02"})
		}
		day = &d
	}

	slots, err := s.store.ListTimeSlots(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slices.SortStableFunc(slots, compareSlots)

	result := make([]*api.TimeSlotResponse, 0, len(slots))
	for _, slot := range slots {
		result = append(result, toTimeSlotResponse(slot))
	}

	return result, nil
}

func (s *Service) CreateTimeSlot(ctx context.Context, req *api.TimeSlotCreateRequest) (*api.TimeSlotResponse, error) {
	const op = "service.CreateTimeSlot"

	fields := response.FieldErrors{}

	date, err := parseDate(req.Date)
	if err != nil {
		fields["date"] = "must match layout 2006-01-02"
	}

	start, end, clockErr := parseClockRange(req.StartTime, req.EndTime)
	for k, v := range clockErr {
		fields[k] = v
	}

	if len(fields) > 0 {
		return nil, fmt.Errorf("%s: %w", op, fields)
	}

	duration := int(end.Sub(start) / time.Minute)
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%s: %w", op, response.FieldErrors{"duration": "must be positive"})
	}

	now := s.now().UTC()
	slot := &models.TimeSlot{
		ID:              uuid.NewString(),
		Date:            date,
		StartTime:       start.Format(models.ClockLayout),
		EndTime:         end.Format(models.ClockLayout),
		DurationMinutes: duration,
		IsBlocked:       req.IsBlocked,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreateTimeSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toTimeSlotResponse(slot), nil
}

func (s *Service) UpdateTimeSlot(ctx context.Context, id string, req *api.TimeSlotUpdateRequest) (*api.TimeSlotResponse, error) {
	const op = "service.UpdateTimeSlot"

	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	slot, err := s.store.GetTimeSlot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, response.FieldErrors{"date": "must match layout 2006-01-02"})
		}
		slot.Date = date
	}

	startRaw, endRaw := slot.StartTime, slot.EndTime
	if req.StartTime != nil {
		startRaw = *req.StartTime
	}
	if req.EndTime != nil {
		endRaw = *req.EndTime
	}

	start, end, fields := parseClockRange(startRaw, endRaw)
	if len(fields) > 0 {
		return nil, fmt.Errorf("%s: %w", op, fields)
	}

	if req.StartTime != nil || req.EndTime != nil {
		slot.DurationMinutes = int(end.Sub(start) / time.Minute)
	}
	slot.StartTime = start.Format(models.ClockLayout)
	slot.EndTime = end.Format(models.ClockLayout)

	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return nil, fmt.Errorf("%s: %w", op, response.FieldErrors{"duration": "must be positive"})
		}
		slot.DurationMinutes = *req.DurationMinutes
	}

	if req.IsBlocked != nil {
		slot.IsBlocked = *req.IsBlocked
	}

	slot.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateTimeSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toTimeSlotResponse(slot), nil
}

// DeleteTimeSlot removes a slot that no active appointment references as
// primary or fallback.
func (s *Service) DeleteTimeSlot(ctx context.Context, id string) error {
	const op = "service.DeleteTimeSlot"

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

	if _, err := tx.LockTimeSlot(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	inUse, err := tx.TimeSlotInUse(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if inUse {
		return fmt.Errorf("%s: slot has active appointments: %w", op, response.ErrConflict)
	}

	if err := tx.DeleteTimeSlot(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// findFallback picks the earliest open slot dated on or after primary,
// other than primary itself.
func (s *Service) findFallback(ctx context.Context, tx Tx, primary *models.TimeSlot) (*models.TimeSlot, error) {
	const op = "service.findFallback"

	// primary is still open inside the transaction, so it can take one of
	// the two rows.
	candidates, err := tx.ListOpenTimeSlots(ctx, primary.Date, 2)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return chooseFallback(primary, candidates), nil
}

func chooseFallback(primary *models.TimeSlot, candidates []*models.TimeSlot) *models.TimeSlot {
	var best *models.TimeSlot

	for _, c := range candidates {
		if c.ID == primary.ID || !c.Bookable() || c.Date.Before(primary.Date) {
			continue
		}
		if best == nil || c.Before(best) {
			best = c
		}
	}

	return best
}

func compareSlots(a, b *models.TimeSlot) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(models.DateLayout, raw, time.UTC)
}

func parseClockRange(startRaw, endRaw string) (time.Time, time.Time, response.FieldErrors) {
	fields := response.FieldErrors{}

	start, err := time.Parse(models.ClockLayout, startRaw)
	if err != nil {
		fields["start_time"] = "must match layout 15:04"
	}

	end, err := time.Parse(models.ClockLayout, endRaw)
	if err != nil {
		fields["end_time"] = "must match layout 15:04"
	}

	if len(fields) == 0 && !end.After(start) {
		fields["end_time"] = "must be after start_time"
	}

	return start, end, fields
}

func toTimeSlotResponse(slot *models.TimeSlot) *api.TimeSlotResponse {
	if slot == nil {
		return nil
	}

	return &api.TimeSlotResponse{
		ID:              slot.ID,
		Date:            slot.Date.Format(models.DateLayout),
		StartTime:       slot.StartTime,
		EndTime:         slot.EndTime,
		DurationMinutes: slot.DurationMinutes,
		IsAvailable:     slot.Bookable(),
		IsBlocked:       slot.IsBlocked,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, response.ErrNotFound)
}
