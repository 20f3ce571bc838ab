package update

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/api"
	"trainer-booking/internal/http-server/respond"
	"trainer-booking/internal/service"
	"trainer-booking/pkg/middleware/adminAuth"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

type AppointmentUpdater interface {
	UpdateAppointment(ctx context.Context, id string, params service.UpdateAppointmentParams) (*api.AppointmentResponse, error)
}

type Response struct {
	Appointment *api.AppointmentResponse `json:"appointment"`
}

// New patches an appointment. Clients identify themselves with client_email
// in the body; a request through adminAuth.Optional with a valid session acts
// as the administrator.
func New(log *slog.Logger, updater AppointmentUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.update.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.AppointmentUpdateRequest
		if !respond.Decode(w, r, log, &req) {
			return
		}

		params := service.UpdateAppointmentParams{
			TimeSlotID:     req.TimeSlotID,
			Status:         req.Status,
			RequesterEmail: req.ClientEmail,
			AsAdmin:        adminAuth.Email(r.Context()) != "",
		}

		appt, err := updater.UpdateAppointment(r.Context(), id, params)
		if err != nil {
			respond.Error(w, r, log, err, "failed to update appointment")
			return
		}

		log.Info("appointment updated",
			slog.String("id", appt.ID),
			slog.String("status", appt.Status),
			slog.Bool("as_admin", params.AsAdmin),
		)

		respond.JSON(w, r, http.StatusOK, Response{Appointment: appt})
	}
}
