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

type TimeSlotGetter interface {
	GetTimeSlot(ctx context.Context, id string) (*api.TimeSlotResponse, error)
}

type Response struct {
	TimeSlot *api.TimeSlotResponse `json:"time_slot"`
}

func New(log *slog.Logger, getter TimeSlotGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.timeslots.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		slot, err := getter.GetTimeSlot(r.Context(), id)
		if err != nil {
			respond.Error(w, r, log, err, "failed to get time slot")
			return
		}

		respond.JSON(w, r, http.StatusOK, Response{TimeSlot: slot})
	}
}
