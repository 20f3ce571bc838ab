package models

import "time"

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

type AppointmentStatus string

const (
	AppointmentScheduled   AppointmentStatus = "scheduled"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentCompleted   AppointmentStatus = "completed"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentScheduled, AppointmentRescheduled, AppointmentCancelled, AppointmentCompleted:
		return true
	}
	return false
}

// Active reports whether the appointment still holds its primary slot.
func (s AppointmentStatus) Active() bool {
	return s != AppointmentCancelled
}

// TimeSlot is a bookable window. Date carries only the calendar day (UTC
// midnight); StartTime and EndTime are zero-padded "HH:MM" strings, so they
// order lexicographically.
type TimeSlot struct {
	ID              string    `db:"id"`
	Date            time.Time `db:"date"`
	StartTime       string    `db:"start_time"`
	EndTime         string    `db:"end_time"`
	DurationMinutes int       `db:"duration"`
	IsBlocked       bool      `db:"is_blocked"`
	// Booked is derived from appointments at read time, never stored.
	Booked    bool      `db:"-"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Bookable is the single source of truth for slot availability.
func (s *TimeSlot) Bookable() bool {
	return !s.IsBlocked && !s.Booked
}

// Before orders slots by (date, start time).
func (s *TimeSlot) Before(o *TimeSlot) bool {
	if !s.Date.Equal(o.Date) {
		return s.Date.Before(o.Date)
	}
	if s.StartTime != o.StartTime {
		return s.StartTime < o.StartTime
	}
	return s.ID < o.ID
}

type Appointment struct {
	ID          string            `db:"id"`
	ClientEmail string            `db:"client_email"`
	ClientName  *string           `db:"client_name"`
	TimeSlotID  string            `db:"time_slot_id"`
	FallbackID  *string           `db:"fallback_time_slot_id"`
	Status      AppointmentStatus `db:"status"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`

	// Populated by joined reads.
	TimeSlot *TimeSlot `db:"-"`
	Fallback *TimeSlot `db:"-"`
}

type OtpToken struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
	CreatedAt time.Time `db:"created_at"`
}

// Session is an administrator credential issued after OTP verification.
type Session struct {
	Token     string
	Email     string
	ExpiresAt time.Time
}

type AppointmentFilter struct {
	// ClientEmail restricts to one client; nil lists every client.
	ClientEmail *string
}
