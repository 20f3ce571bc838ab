package delete

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/internal/http-server/respond"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

type TimeSlotDeleter interface {
	DeleteTimeSlot(ctx context.Context, id string) error
}

func New(log *slog.Logger, deleter TimeSlotDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.timeslots.delete.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		if err := deleter.DeleteTimeSlot(r.Context(), id); err != nil {
			respond.Error(w, r, log, err, "failed to delete time slot")
			return
		}

		log.Info("time slot deleted", slog.String("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
