package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stayware/booking-platform/internal/notification/application"
)

type Handler struct {
	log   *slog.Logger
	store application.MessageStore
	queue application.Queue
}

func NewHandler(log *slog.Logger, store application.MessageStore, queue application.Queue) *Handler {
	return &Handler{log: log, store: store, queue: queue}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/hotels/{id}/notifications", h.listHotelNotifications)
	r.Get("/notifications/pending", h.listPending)
	r.Get("/queue/depth", h.queueDepth)

	return r
}

func (h *Handler) listHotelNotifications(w http.ResponseWriter, r *http.Request) {
	hotelID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid hotel id", http.StatusBadRequest)
		return
	}
	msgs, err := h.store.ListByHotel(r.Context(), hotelID)
	if err != nil {
		h.log.Error("list hotel notifications failed", "hotel_id", hotelID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, msgs)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.store.ListPending(r.Context())
	if err != nil {
		h.log.Error("list pending notifications failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, msgs)
}

func (h *Handler) queueDepth(w http.ResponseWriter, r *http.Request) {
	n, err := h.queue.ApproximateCount(r.Context())
	if err != nil {
		h.log.Error("queue depth failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]int{"approximate_depth": n})
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("write response failed", "err", err)
	}
}
