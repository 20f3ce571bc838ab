package list

import (
	"context"
	"log/slog"
	"net/http"

	"trainer-booking/api"
	"trainer-booking/internal/http-server/respond"

	"github.com/go-chi/chi/middleware"
)

type TimeSlotLister interface {
	ListTimeSlots(ctx context.Context, date *string) ([]*api.TimeSlotResponse, error)
}

type Response struct {
	TimeSlots []*api.TimeSlotResponse `json:"time_slots"`
}

func New(log *slog.Logger, lister TimeSlotLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.timeslots.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var date *string
		if d := r.URL.Query().Get("date"); d != "" {
			date = &d
		}

		slots, err := lister.ListTimeSlots(r.Context(), date)
		if err != nil {
			respond.Error(w, r, log, err, "failed to list time slots")
			return
		}

		log.Info("time slots listed", slog.Int("count", len(slots)))

		respond.JSON(w, r, http.StatusOK, Response{TimeSlots: slots})
	}
}
