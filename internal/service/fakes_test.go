package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"trainer-booking/internal/models"
	"trainer-booking/internal/notify"
	"trainer-booking/pkg/response"

	"golang.org/x/crypto/bcrypt"
)

// memStore serializes transactions behind one mutex, which is enough to model
// row locks for a single-process test.
type memStore struct {
	// txMu is held for the lifetime of a transaction.
	txMu sync.Mutex
	// mu guards the maps.
	mu sync.Mutex

	slots  map[string]*models.TimeSlot
	appts  map[string]*models.Appointment
	tokens map[string]*models.OtpToken
	order  []string

	commits int
}

func newMemStore() *memStore {
	return &memStore{
		slots:  map[string]*models.TimeSlot{},
		appts:  map[string]*models.Appointment{},
		tokens: map[string]*models.OtpToken{},
	}
}

func (m *memStore) booked(id string) bool {
	for _, a := range m.appts {
		if a.TimeSlotID == id && a.Status.Active() {
			return true
		}
	}
	return false
}

func (m *memStore) slotCopy(id string) *models.TimeSlot {
	slot, ok := m.slots[id]
	if !ok {
		return nil
	}
	c := *slot
	c.Booked = m.booked(id)
	return &c
}

func (m *memStore) apptCopy(id string) *models.Appointment {
	appt, ok := m.appts[id]
	if !ok {
		return nil
	}
	c := *appt
	c.TimeSlot = m.slotCopy(appt.TimeSlotID)
	if appt.FallbackID != nil {
		c.Fallback = m.slotCopy(*appt.FallbackID)
	}
	return &c
}

func (m *memStore) BeginTx(_ context.Context) (Tx, error) {
	m.txMu.Lock()
	return &memTx{store: m}, nil
}

func (m *memStore) GetTimeSlot(_ context.Context, id string) (*models.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := m.slotCopy(id)
	if slot == nil {
		return nil, fmt.Errorf("mem.GetTimeSlot: %w", response.ErrNotFound)
	}
	return slot, nil
}

func (m *memStore) ListTimeSlots(_ context.Context, date *time.Time) ([]*models.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.TimeSlot
	for id, slot := range m.slots {
		if date != nil && !slot.Date.Equal(*date) {
			continue
		}
		out = append(out, m.slotCopy(id))
	}
	return out, nil
}

func (m *memStore) CreateTimeSlot(_ context.Context, slot *models.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *slot
	m.slots[slot.ID] = &c
	return nil
}

func (m *memStore) UpdateTimeSlot(_ context.Context, slot *models.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[slot.ID]; !ok {
		return response.ErrNotFound
	}
	c := *slot
	m.slots[slot.ID] = &c
	return nil
}

func (m *memStore) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt := m.apptCopy(id)
	if appt == nil {
		return nil, fmt.Errorf("mem.GetAppointment: %w", response.ErrNotFound)
	}
	return appt, nil
}

func (m *memStore) ListAppointments(_ context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Appointment
	for i := len(m.order) - 1; i >= 0; i-- {
		appt := m.appts[m.order[i]]
		if !appt.Status.Active() {
			continue
		}
		if filter.ClientEmail != nil && appt.ClientEmail != *filter.ClientEmail {
			continue
		}
		out = append(out, m.apptCopy(appt.ID))
	}
	return out, nil
}

func (m *memStore) CreateOtpToken(_ context.Context, token *models.OtpToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *token
	m.tokens[token.ID] = &c
	return nil
}

func (m *memStore) FindLatestValidOtpToken(_ context.Context, email string, now time.Time) (*models.OtpToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *models.OtpToken
	for _, tok := range m.tokens {
		if tok.Email != email || tok.Used || !now.Before(tok.ExpiresAt) {
			continue
		}
		if best == nil || tok.CreatedAt.After(best.CreatedAt) {
			best = tok
		}
	}
	if best == nil {
		return nil, response.ErrNotFound
	}
	c := *best
	return &c, nil
}

func (m *memStore) MarkOtpTokenUsed(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[id]
	if !ok || tok.Used {
		return false, nil
	}
	tok.Used = true
	return true, nil
}

type memTx struct {
	store *memStore
	once  sync.Once
}

func (t *memTx) release() {
	t.once.Do(t.store.txMu.Unlock)
}

func (t *memTx) LockTimeSlot(_ context.Context, id string) (*models.TimeSlot, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	slot := t.store.slotCopy(id)
	if slot == nil {
		return nil, fmt.Errorf("mem.LockTimeSlot: %w", response.ErrNotFound)
	}
	return slot, nil
}

func (t *memTx) ListOpenTimeSlots(_ context.Context, from time.Time, limit int) ([]*models.TimeSlot, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var open []*models.TimeSlot
	for id := range t.store.slots {
		slot := t.store.slotCopy(id)
		if slot.Bookable() && !slot.Date.Before(from) {
			open = append(open, slot)
		}
	}
	slices.SortFunc(open, compareSlots)
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (t *memTx) TimeSlotInUse(_ context.Context, id string) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, a := range t.store.appts {
		if !a.Status.Active() {
			continue
		}
		if a.TimeSlotID == id || (a.FallbackID != nil && *a.FallbackID == id) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) DeleteTimeSlot(_ context.Context, id string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.store.slots[id]; !ok {
		return response.ErrNotFound
	}
	delete(t.store.slots, id)
	return nil
}

func (t *memTx) GetAppointmentForUpdate(_ context.Context, id string) (*models.Appointment, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	appt := t.store.apptCopy(id)
	if appt == nil {
		return nil, fmt.Errorf("mem.GetAppointmentForUpdate: %w", response.ErrNotFound)
	}
	return appt, nil
}

func (t *memTx) CreateAppointment(_ context.Context, appt *models.Appointment) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.store.booked(appt.TimeSlotID) {
		return response.ErrSlotNotAvailable
	}
	c := *appt
	c.TimeSlot, c.Fallback = nil, nil
	t.store.appts[appt.ID] = &c
	t.store.order = append(t.store.order, appt.ID)
	return nil
}

func (t *memTx) UpdateAppointment(_ context.Context, appt *models.Appointment) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.store.appts[appt.ID]; !ok {
		return response.ErrNotFound
	}
	c := *appt
	c.TimeSlot, c.Fallback = nil, nil
	t.store.appts[appt.ID] = &c
	return nil
}

func (t *memTx) Commit() error {
	t.store.mu.Lock()
	t.store.commits++
	t.store.mu.Unlock()

	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	t.release()
	return nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}}
}

func (l *memLocker) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]models.Session{}}
}

func (m *memSessions) Create(_ context.Context, s *models.Session, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.Token] = *s
	return nil
}

func (m *memSessions) Get(_ context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, response.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[token]; !ok {
		return response.ErrNotFound
	}
	delete(m.sessions, token)
	return nil
}

type countingLimiter struct {
	mu    sync.Mutex
	limit int
	hits  map[string]int
	err   error
}

func (c *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return false, c.err
	}
	if c.hits == nil {
		c.hits = map[string]int{}
	}
	c.hits[key]++
	return c.hits[key] <= c.limit, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = append(r.msgs, msg)
}

func (r *recordingNotifier) sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.msgs)
}

const testAdmin = "admin@x.com"

type fixture struct {
	svc      *Service
	store    *memStore
	locker   *memLocker
	sessions *memSessions
	limiter  *countingLimiter
	notifier *recordingNotifier
	clock    *time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		locker:   newMemLocker(),
		sessions: newMemSessions(),
		limiter:  &countingLimiter{limit: 5},
		notifier: &recordingNotifier{},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(log, Config{
		AdminEmail: testAdmin,
		OTPTTL:     15 * time.Minute,
		SessionTTL: time.Hour,
		AppURL:     "http://localhost:3000/",
	}, f.store, f.locker, f.sessions, f.limiter, f.notifier)

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	f.clock = &now
	f.svc.now = func() time.Time { return *f.clock }
	f.svc.hashCost = bcrypt.MinCost

	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *fixture) addSlot(id, date, start, end string, blocked bool) {
	day, err := parseDate(date)
	if err != nil {
		panic(err)
	}
	f.store.slots[id] = &models.TimeSlot{
		ID:              id,
		Date:            day,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: 60,
		IsBlocked:       blocked,
	}
}
