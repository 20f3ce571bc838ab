package list

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/api"
	"trainer-booking/internal/http-server/respond"
	"trainer-booking/pkg/response"

	"github.com/go-chi/chi/middleware"
)

type AppointmentLister interface {
	ListAppointments(ctx context.Context, clientEmail *string) ([]*api.AppointmentResponse, error)
}

type Response struct {
	Appointments []*api.AppointmentResponse `json:"appointments"`
}

// New lists one client's active appointments; the email query parameter is
// required.
func New(log *slog.Logger, lister AppointmentLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		email := r.URL.Query().Get("email")
		if email == "" {
			respond.Error(w, r, log, response.FieldErrors{"email": "field is required"}, "")
			return
		}

		serve(w, r, log, lister, &email)
	}
}

// NewAll lists every client's active appointments for the admin view.
func NewAll(log *slog.Logger, lister AppointmentLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.list.NewAll"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		serve(w, r, log, lister, nil)
	}
}

func serve(w http.ResponseWriter, r *http.Request, log *slog.Logger, lister AppointmentLister, email *string) {
	appts, err := lister.ListAppointments(r.Context(), email)
	if err != nil {
		respond.Error(w, r, log, err, "failed to list appointments")
		return
	}

	log.Info("appointments listed", slog.Int("count", len(appts)))

	respond.JSON(w, r, http.StatusOK, Response{Appointments: appts})
}
