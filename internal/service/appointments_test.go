package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trainer-booking/api"
	"trainer-booking/internal/models"
	"trainer-booking/pkg/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	slot1 = "6f1c1a52-2a43-4d7e-9a39-000000000001"
	slot2 = "6f1c1a52-2a43-4d7e-9a39-000000000002"
	slot3 = "6f1c1a52-2a43-4d7e-9a39-000000000003"
)

func ptr[T any](v T) *T {
	return &v
}

func twoSlots() *fixture {
	f := newFixture()
	f.addSlot(slot1, "2024-06-10", "09:00", "10:00", false)
	f.addSlot(slot2, "2024-06-12", "09:00", "10:00", false)
	return f
}

func book(t *testing.T, f *fixture, email, slotID string) *api.AppointmentResponse {
	t.Helper()

	appt, err := f.svc.CreateAppointment(context.Background(), &api.AppointmentCreateRequest{
		ClientEmail: email,
		TimeSlotID:  slotID,
	})
	require.NoError(t, err)
	return appt
}

func TestCreateAppointment_ReservesFallback(t *testing.T) {
	f := twoSlots()

	appt, err := f.svc.CreateAppointment(context.Background(), &api.AppointmentCreateRequest{
		ClientEmail: "A@X.com ",
		ClientName:  ptr("Ana"),
		TimeSlotID:  slot1,
	})
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", appt.ClientEmail)
	assert.Equal(t, "Ana", *appt.ClientName)
	assert.Equal(t, slot1, appt.TimeSlotID)
	require.NotNil(t, appt.FallbackID)
	assert.Equal(t, slot2, *appt.FallbackID)
	assert.Equal(t, string(models.AppointmentScheduled), appt.Status)
	assert.False(t, appt.TimeSlot.IsAvailable)
	assert.True(t, appt.Fallback.IsAvailable)

	sent := f.notifier.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "a@x.com", sent[0].To)
	assert.Equal(t, testAdmin, sent[1].To)
	assert.Contains(t, sent[0].Body, "http://localhost:3000/appointments/a@x.com")

	slot, err := f.svc.GetTimeSlot(context.Background(), slot1)
	require.NoError(t, err)
	assert.False(t, slot.IsAvailable)

	assert.Empty(t, f.locker.held)
}

func TestCreateAppointment_SlotAlreadyBooked(t *testing.T) {
	f := twoSlots()
	book(t, f, "a@x.com", slot1)

	_, err := f.svc.CreateAppointment(context.Background(), &api.AppointmentCreateRequest{
		ClientEmail: "b@x.com",
		TimeSlotID:  slot1,
	})
	assert.ErrorIs(t, err, response.ErrSlotNotAvailable)
}

func TestCreateAppointment_Rejections(t *testing.T) {
	f := twoSlots()
	f.addSlot(slot3, "2024-06-14", "09:00", "10:00", true)

	tests := []struct {
		name   string
		req    api.AppointmentCreateRequest
		target error
	}{
		{"bad email", api.AppointmentCreateRequest{ClientEmail: "nope", TimeSlotID: slot1}, response.ErrValidation},
		{"bad slot id", api.AppointmentCreateRequest{ClientEmail: "a@x.com", TimeSlotID: "42"}, response.ErrValidation},
		{"unknown slot", api.AppointmentCreateRequest{ClientEmail: "a@x.com", TimeSlotID: "6f1c1a52-2a43-4d7e-9a39-0000000000ff"}, response.ErrNotFound},
		{"blocked slot", api.AppointmentCreateRequest{ClientEmail: "a@x.com", TimeSlotID: slot3}, response.ErrSlotNotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateAppointment(context.Background(), &tt.req)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	assert.Empty(t, f.notifier.sent())
}

func TestCreateAppointment_LockHeld(t *testing.T) {
	f := twoSlots()
	f.locker.held["slot:"+slot1] = true

	_, err := f.svc.CreateAppointment(context.Background(), &api.AppointmentCreateRequest{
		ClientEmail: "a@x.com",
		TimeSlotID:  slot1,
	})
	assert.ErrorIs(t, err, response.ErrLocked)
}

func TestCreateAppointment_NoFallback(t *testing.T) {
	f := newFixture()
	f.addSlot(slot1, "2024-06-10", "09:00", "10:00", false)
	f.addSlot(slot2, "2024-06-09", "09:00", "10:00", false)

	appt := book(t, f, "a@x.com", slot1)
	assert.Nil(t, appt.FallbackID)
	assert.Nil(t, appt.Fallback)
}

func TestCreateAppointment_ConcurrentBookingsOfOneSlot(t *testing.T) {
	f := twoSlots()

	const clients = 8
	var wg sync.WaitGroup
	errs := make([]error, clients)

	for i := 0; i < clients; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.CreateAppointment(context.Background(), &api.AppointmentCreateRequest{
				ClientEmail: "c@x.com",
				TimeSlotID:  slot1,
			})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, response.ErrLocked) || errors.Is(err, response.ErrSlotNotAvailable), err.Error())
	}
	assert.Equal(t, 1, ok)

	appts, err := f.svc.ListAppointments(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}

func TestChooseFallback(t *testing.T) {
	day := func(s string) *models.TimeSlot {
		d, err := parseDate(s)
		require.NoError(t, err)
		return &models.TimeSlot{Date: d}
	}
	slot := func(id, date, start string, blocked, booked bool) *models.TimeSlot {
		s := day(date)
		s.ID, s.StartTime, s.IsBlocked, s.Booked = id, start, blocked, booked
		return s
	}

	primary := slot("p", "2024-06-10", "10:00", false, false)

	tests := []struct {
		name       string
		candidates []*models.TimeSlot
		want       string
	}{
		{"none", nil, ""},
		{"only primary", []*models.TimeSlot{primary}, ""},
		{"earlier date skipped", []*models.TimeSlot{slot("a", "2024-06-09", "09:00", false, false)}, ""},
		{"same day earlier start", []*models.TimeSlot{
			slot("a", "2024-06-11", "08:00", false, false),
			slot("b", "2024-06-10", "08:00", false, false),
		}, "b"},
		{"blocked and booked skipped", []*models.TimeSlot{
			slot("a", "2024-06-10", "11:00", true, false),
			slot("b", "2024-06-10", "12:00", false, true),
			slot("c", "2024-06-12", "09:00", false, false),
		}, "c"},
		{"tie broken by id", []*models.TimeSlot{
			slot("z", "2024-06-11", "09:00", false, false),
			slot("y", "2024-06-11", "09:00", false, false),
		}, "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chooseFallback(primary, tt.candidates)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestUpdateAppointment_RescheduleRecomputesFallback(t *testing.T) {
	f := twoSlots()
	f.addSlot(slot3, "2024-06-14", "09:00", "10:00", false)
	appt := book(t, f, "a@x.com", slot1)
	sentBefore := len(f.notifier.sent())

	updated, err := f.svc.UpdateAppointment(context.Background(), appt.ID, UpdateAppointmentParams{
		TimeSlotID: ptr(slot2),
	})
	require.NoError(t, err)

	assert.Equal(t, slot2, updated.TimeSlotID)
	require.NotNil(t, updated.FallbackID)
	assert.Equal(t, slot3, *updated.FallbackID)
	assert.Equal(t, string(models.AppointmentScheduled), updated.Status)

	old, err := f.svc.GetTimeSlot(context.Background(), slot1)
	require.NoError(t, err)
	assert.True(t, old.IsAvailable)

	sent := f.notifier.sent()
	require.Len(t, sent, sentBefore+1)
	assert.Contains(t, sent[len(sent)-1].Subject, "rescheduled")
}

func TestUpdateAppointment_RescheduleToBookedSlot(t *testing.T) {
	f := twoSlots()
	first := book(t, f, "a@x.com", slot1)
	book(t, f, "b@x.com", slot2)

	_, err := f.svc.UpdateAppointment(context.Background(), first.ID, UpdateAppointmentParams{
		TimeSlotID: ptr(slot2),
	})
	assert.ErrorIs(t, err, response.ErrSlotNotAvailable)

	got, err := f.svc.GetAppointment(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, slot1, got.TimeSlotID)
}

func TestUpdateAppointment_Cancel(t *testing.T) {
	tests := []struct {
		name   string
		params UpdateAppointmentParams
		target error
	}{
		{"anonymous", UpdateAppointmentParams{}, response.ErrForbidden},
		{"other client", UpdateAppointmentParams{RequesterEmail: ptr("b@x.com")}, response.ErrForbidden},
		{"owner", UpdateAppointmentParams{RequesterEmail: ptr(" A@x.com")}, nil},
		{"admin", UpdateAppointmentParams{AsAdmin: true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := twoSlots()
			appt := book(t, f, "a@x.com", slot1)

			params := tt.params
			params.Status = ptr("cancelled")

			updated, err := f.svc.UpdateAppointment(context.Background(), appt.ID, params)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(models.AppointmentCancelled), updated.Status)

			slot, err := f.svc.GetTimeSlot(context.Background(), slot1)
			require.NoError(t, err)
			assert.True(t, slot.IsAvailable)

			sent := f.notifier.sent()
			assert.Contains(t, sent[len(sent)-1].Subject, "cancelled")
		})
	}
}

func TestUpdateAppointment_Rejections(t *testing.T) {
	f := twoSlots()
	appt := book(t, f, "a@x.com", slot1)

	_, err := f.svc.UpdateAppointment(context.Background(), appt.ID, UpdateAppointmentParams{Status: ptr("lost")})
	assert.ErrorIs(t, err, response.ErrValidation)

	_, err = f.svc.UpdateAppointment(context.Background(), appt.ID, UpdateAppointmentParams{TimeSlotID: ptr("x")})
	assert.ErrorIs(t, err, response.ErrValidation)

	_, err = f.svc.UpdateAppointment(context.Background(), "not-a-uuid", UpdateAppointmentParams{})
	assert.ErrorIs(t, err, response.ErrNotFound)

	_, err = f.svc.UpdateAppointment(context.Background(), slot3, UpdateAppointmentParams{Status: ptr("completed")})
	assert.ErrorIs(t, err, response.ErrNotFound)
}

func TestUpdateAppointment_StatusOnly(t *testing.T) {
	f := twoSlots()
	appt := book(t, f, "a@x.com", slot1)
	sentBefore := len(f.notifier.sent())

	updated, err := f.svc.UpdateAppointment(context.Background(), appt.ID, UpdateAppointmentParams{Status: ptr("completed")})
	require.NoError(t, err)

	assert.Equal(t, string(models.AppointmentCompleted), updated.Status)
	assert.Equal(t, slot1, updated.TimeSlotID)
	assert.Len(t, f.notifier.sent(), sentBefore)
}

func TestCancelAppointment_Idempotent(t *testing.T) {
	f := twoSlots()
	appt := book(t, f, "a@x.com", slot1)
	sentBefore := len(f.notifier.sent())

	require.NoError(t, f.svc.CancelAppointment(context.Background(), appt.ID))
	require.NoError(t, f.svc.CancelAppointment(context.Background(), appt.ID))

	assert.Len(t, f.notifier.sent(), sentBefore+1)

	list, err := f.svc.ListAppointments(context.Background(), ptr("a@x.com"))
	require.NoError(t, err)
	assert.Empty(t, list)

	// the slot can be booked again
	book(t, f, "b@x.com", slot1)

	assert.ErrorIs(t, f.svc.CancelAppointment(context.Background(), slot3), response.ErrNotFound)
}

func TestListAppointments(t *testing.T) {
	f := twoSlots()
	f.addSlot(slot3, "2024-06-14", "09:00", "10:00", false)

	first := book(t, f, "a@x.com", slot1)
	book(t, f, "b@x.com", slot2)
	f.advance(1)
	second := book(t, f, "a@x.com", slot3)

	mine, err := f.svc.ListAppointments(context.Background(), ptr("A@x.com"))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	all, err := f.svc.ListAppointments(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.ListAppointments(context.Background(), ptr("bad"))
	assert.ErrorIs(t, err, response.ErrValidation)
}
