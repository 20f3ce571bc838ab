package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trainer-booking/internal/lock"
	"trainer-booking/internal/models"
	"trainer-booking/internal/notify"
	"trainer-booking/pkg/response"
	"trainer-booking/pkg/sl"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const slotLockTTL = 10 * time.Second

type Service struct {
	log      *slog.Logger
	cfg      Config
	store    Store
	locker   lock.Locker
	sessions SessionStore
	limiter  RateLimiter
	notifier Notifier
	validate *validator.Validate

	now      func() time.Time
	newToken func() (string, error)
	hashCost int
}

type Config struct {
	AdminEmail string
	OTPTTL     time.Duration
	SessionTTL time.Duration
	// AppURL prefixes the links embedded in outgoing mail.
	AppURL string
}

func NewService(
	log *slog.Logger,
	cfg Config,
	store Store,
	locker lock.Locker,
	sessions SessionStore,
	limiter RateLimiter,
	notifier Notifier,
) *Service {
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 15 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}

	return &Service{
		log:      log.With(slog.String("component", "service")),
		cfg:      cfg,
		store:    store,
		locker:   locker,
		sessions: sessions,
		limiter:  limiter,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		newToken: randomToken,
		hashCost: bcrypt.DefaultCost,
	}
}

// Store is the durable side of the service. Reads outside a transaction
// derive TimeSlot.Booked from active appointments.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	// Time slots
	GetTimeSlot(ctx context.Context, id string) (*models.TimeSlot, error)
	ListTimeSlots(ctx context.Context, date *time.Time) ([]*models.TimeSlot, error)
	CreateTimeSlot(ctx context.Context, slot *models.TimeSlot) error
	UpdateTimeSlot(ctx context.Context, slot *models.TimeSlot) error

	// Appointments
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error)

	// OTP tokens
	CreateOtpToken(ctx context.Context, token *models.OtpToken) error
	FindLatestValidOtpToken(ctx context.Context, email string, now time.Time) (*models.OtpToken, error)
	MarkOtpTokenUsed(ctx context.Context, id string) (bool, error)
}

// Tx groups the reads and writes that must observe one consistent view of
// slot occupancy.
type Tx interface {
	// LockTimeSlot reads the slot and holds it until the transaction ends.
	LockTimeSlot(ctx context.Context, id string) (*models.TimeSlot, error)
	// ListOpenTimeSlots returns at most limit unblocked, unbooked slots dated
	// on or after from, ordered by (date, start time, id).
	ListOpenTimeSlots(ctx context.Context, from time.Time, limit int) ([]*models.TimeSlot, error)
	TimeSlotInUse(ctx context.Context, id string) (bool, error)
	DeleteTimeSlot(ctx context.Context, id string) error

	GetAppointmentForUpdate(ctx context.Context, id string) (*models.Appointment, error)
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	UpdateAppointment(ctx context.Context, appt *models.Appointment) error

	Commit() error
	Rollback() error
}

type SessionStore interface {
	Create(ctx context.Context, session *models.Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Notifier delivers rendered mail on a best-effort basis.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message)
}

func (s *Service) normalizeEmail(field, raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))

	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", response.FieldErrors{field: "must be a valid email address"}
	}

	return email, nil
}

func (s *Service) isAdmin(email string) bool {
	return s.cfg.AdminEmail != "" && strings.EqualFold(email, s.cfg.AdminEmail)
}

// lockSlot takes the cross-instance booking lock for a slot.
func (s *Service) lockSlot(ctx context.Context, slotID string) (func(), error) {
	const op = "service.lockSlot"

	key := fmt.Sprintf("slot:%s", slotID)

	locked, err := s.locker.Lock(ctx, key, slotLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}

	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			s.log.Warn("failed to release slot lock", slog.String("key", key), sl.Err(err))
		}
	}, nil
}

func (s *Service) send(ctx context.Context, msg notify.Message, err error) {
	if err != nil {
		s.log.Error("failed to render notification", slog.String("to", msg.To), sl.Err(err))
		return
	}
	if s.notifier == nil {
		return
	}

	s.notifier.Notify(ctx, msg)
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
