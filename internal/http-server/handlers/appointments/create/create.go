package create

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/api"
	"trainer-booking/internal/http-server/respond"

	"github.com/go-chi/chi/middleware"
)

type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, req *api.AppointmentCreateRequest) (*api.AppointmentResponse, error)
}

type Response struct {
	Appointment *api.AppointmentResponse `json:"appointment"`
}

func New(log *slog.Logger, creator AppointmentCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.AppointmentCreateRequest
		if !respond.Decode(w, r, log, &req) {
			return
		}

		appt, err := creator.CreateAppointment(r.Context(), &req)
		if err != nil {
			respond.Error(w, r, log, err, "failed to create appointment")
			return
		}

		log.Info("appointment created",
			slog.String("id", appt.ID),
			slog.String("time_slot_id", appt.TimeSlotID),
		)

		respond.JSON(w, r, http.StatusCreated, Response{Appointment: appt})
	}
}
