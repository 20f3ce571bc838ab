package create

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/api"
	"trainer-booking/internal/http-server/respond"

	"github.com/go-chi/chi/middleware"
)

type TimeSlotCreator interface {
	CreateTimeSlot(ctx context.Context, req *api.TimeSlotCreateRequest) (*api.TimeSlotResponse, error)
}

type Response struct {
	TimeSlot *api.TimeSlotResponse `json:"time_slot"`
}

func New(log *slog.Logger, creator TimeSlotCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.timeslots.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.TimeSlotCreateRequest
		if !respond.Decode(w, r, log, &req) {
			return
		}

		slot, err := creator.CreateTimeSlot(r.Context(), &req)
		if err != nil {
			respond.Error(w, r, log, err, "failed to create time slot")
			return
		}

		log.Info("time slot created", slog.String("id", slot.ID))

		respond.JSON(w, r, http.StatusCreated, Response{TimeSlot: slot})
	}
}
