package router

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/api"
	adminOtp "trainer-booking/internal/http-server/handlers/admin/otp"
	adminLogout "trainer-booking/internal/http-server/handlers/admin/logout"
	adminVerify "trainer-booking/internal/http-server/handlers/admin/verify"
	apptCancel "trainer-booking/internal/http-server/handlers/appointments/cancel"
	apptCreate "trainer-booking/internal/http-server/handlers/appointments/create"
	apptGet "trainer-booking/internal/http-server/handlers/appointments/get"
	apptList "trainer-booking/internal/http-server/handlers/appointments/list"
	apptUpdate "trainer-booking/internal/http-server/handlers/appointments/update"
	slotCreate "trainer-booking/internal/http-server/handlers/timeslots/create"
	slotDelete "trainer-booking/internal/http-server/handlers/timeslots/delete"
	slotGet "trainer-booking/internal/http-server/handlers/timeslots/get"
	slotList "trainer-booking/internal/http-server/handlers/timeslots/list"
	slotUpdate "trainer-booking/internal/http-server/handlers/timeslots/update"
	"trainer-booking/internal/service"
	"trainer-booking/pkg/middleware/adminAuth"
	"trainer-booking/pkg/middleware/mwLogger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

// Service is everything the HTTP surface calls. *service.Service
// implements it.
type Service interface {
	ListTimeSlots(ctx context.Context, date *string) ([]*api.TimeSlotResponse, error)
	GetTimeSlot(ctx context.Context, id string) (*api.TimeSlotResponse, error)
	CreateTimeSlot(ctx context.Context, req *api.TimeSlotCreateRequest) (*api.TimeSlotResponse, error)
	UpdateTimeSlot(ctx context.Context, id string, req *api.TimeSlotUpdateRequest) (*api.TimeSlotResponse, error)
	DeleteTimeSlot(ctx context.Context, id string) error

	CreateAppointment(ctx context.Context, req *api.AppointmentCreateRequest) (*api.AppointmentResponse, error)
	ListAppointments(ctx context.Context, clientEmail *string) ([]*api.AppointmentResponse, error)
	GetAppointment(ctx context.Context, id string) (*api.AppointmentResponse, error)
	UpdateAppointment(ctx context.Context, id string, params service.UpdateAppointmentParams) (*api.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, id string) error

	SendAccessLink(ctx context.Context, email string) error
	Login(ctx context.Context, email, token string) (*api.SessionResponse, error)
	Authenticate(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context, token string) error
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func New(log *slog.Logger, svc Service) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)

	admin := adminAuth.New(log, svc)

	// Time slots
	router.Get("/time-slots", slotList.New(log, svc))
	router.Get("/time-slots/{id}", slotGet.New(log, svc))
	router.With(admin).Post("/time-slots", slotCreate.New(log, svc))
	router.With(admin).Patch("/time-slots/{id}", slotUpdate.New(log, svc))
	router.With(admin).Delete("/time-slots/{id}", slotDelete.New(log, svc))

	// Appointments
	router.Post("/appointments", apptCreate.New(log, svc))
	router.Get("/appointments", apptList.New(log, svc))
	router.Get("/appointments/{id}", apptGet.New(log, svc))
	router.With(adminAuth.Optional(log, svc)).Patch("/appointments/{id}", apptUpdate.New(log, svc))
	router.With(admin).Delete("/appointments/{id}", apptCancel.New(log, svc))

	// Admin
	router.Post("/admin/otp", adminOtp.New(log, svc))
	router.Post("/admin/verify", adminVerify.New(log, svc))
	router.With(admin).Post("/admin/logout", adminLogout.New(log, svc))
	router.With(admin).Get("/admin/appointments", apptList.NewAll(log, svc))

	return router
}
