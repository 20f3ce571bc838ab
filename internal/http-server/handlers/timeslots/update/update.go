package update

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/api"
	"trainer-booking/internal/http-server/respond"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

type TimeSlotUpdater interface {
	UpdateTimeSlot(ctx context.Context, id string, req *api.TimeSlotUpdateRequest) (*api.TimeSlotResponse, error)
}

type Response struct {
	TimeSlot *api.TimeSlotResponse `json:"time_slot"`
}

func New(log *slog.Logger, updater TimeSlotUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.timeslots.update.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.TimeSlotUpdateRequest
		if !respond.Decode(w, r, log, &req) {
			return
		}

		slot, err := updater.UpdateTimeSlot(r.Context(), id, &req)
		if err != nil {
			respond.Error(w, r, log, err, "failed to update time slot")
			return
		}

		log.Info("time slot updated", slog.String("id", slot.ID))

		respond.JSON(w, r, http.StatusOK, Response{TimeSlot: slot})
	}
}
