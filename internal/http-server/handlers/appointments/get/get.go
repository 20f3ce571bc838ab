package get

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/api"
	"trainer-booking/internal/http-server/respond"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

type AppointmentGetter interface {
	GetAppointment(ctx context.Context, id string) (*api.AppointmentResponse, error)
}

type Response struct {
	Appointment *api.AppointmentResponse `json:"appointment"`
}

func New(log *slog.Logger, getter AppointmentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		appt, err := getter.GetAppointment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respond.Error(w, r, log, err, "failed to get appointment")
			return
		}

		respond.JSON(w, r, http.StatusOK, Response{Appointment: appt})
	}
}
