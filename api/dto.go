package api

import "time"

// Time slots

type TimeSlotCreateRequest struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime         string `json:"end_time" validate:"required,datetime=15:04"`
	DurationMinutes *int   `json:"duration,omitempty" validate:"omitempty,min=1,max=1440"`
	IsBlocked       bool   `json:"is_blocked"`
}

type TimeSlotUpdateRequest struct {
	Date            *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime       *string `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime         *string `json:"end_time,omitempty" validate:"omitempty,datetime=15:04"`
	DurationMinutes *int    `json:"duration,omitempty" validate:"omitempty,min=1,max=1440"`
	IsBlocked       *bool   `json:"is_blocked,omitempty"`
}

// TimeSlotResponse is the public view of a slot: geometry and computed
// availability only.
type TimeSlotResponse struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration"`
	IsAvailable     bool   `json:"is_available"`
	IsBlocked       bool   `json:"is_blocked"`
}

// Appointments

type AppointmentCreateRequest struct {
	ClientEmail string  `json:"client_email" validate:"required,email"`
	ClientName  *string `json:"client_name,omitempty" validate:"omitempty,max=200"`
	TimeSlotID  string  `json:"time_slot_id" validate:"required,uuid"`
}

type AppointmentUpdateRequest struct {
	TimeSlotID  *string `json:"time_slot_id,omitempty" validate:"omitempty,uuid"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=scheduled rescheduled cancelled completed"`
	ClientEmail *string `json:"client_email,omitempty"`
}

type AppointmentResponse struct {
	ID          string            `json:"id"`
	ClientEmail string            `json:"client_email"`
	ClientName  *string           `json:"client_name,omitempty"`
	TimeSlotID  string            `json:"time_slot_id"`
	FallbackID  *string           `json:"alternative_time_slot_id,omitempty"`
	Status      string            `json:"status"`
	TimeSlot    *TimeSlotResponse `json:"time_slot,omitempty"`
	Fallback    *TimeSlotResponse `json:"alternative_time_slot,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Admin access

type AccessRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
