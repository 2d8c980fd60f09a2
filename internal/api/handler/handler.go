// Package handler provides HTTP handlers for the admin and health endpoints.
// Handlers are thin CRUD wrappers over the notification and event stores;
// mutating operations report counts, matching the best-effort nature of the
// scheduling subsystem.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kanamidev/gachatimer/internal/api/respond"
	"github.com/kanamidev/gachatimer/internal/db"
	"github.com/kanamidev/gachatimer/internal/event"
	"github.com/kanamidev/gachatimer/internal/game"
	"github.com/kanamidev/gachatimer/internal/notify"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool       *db.Pool
	games      *game.Registry
	events     *event.Store
	notifs     notify.Store
	reconciler *notify.Reconciler
	logger     *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(pool *db.Pool, games *game.Registry, events *event.Store, notifs notify.Store, reconciler *notify.Reconciler, logger *slog.Logger) *Handler {
	return &Handler{
		pool:       pool,
		games:      games,
		events:     events,
		notifs:     notifs,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":     "Gacha Timer Admin API",
		"version":  "1.0.0",
		"status":   "running",
		"docs":     "/docs",
		"profiles": h.games.Codes(),
	})
}

// HealthCheck reports process liveness.
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} respond.ErrorResponse
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pendingRow is the wire shape of one notification row.
type pendingRow struct {
	ID         int64  `json:"id"`
	Profile    string `json:"profile"`
	Category   string `json:"category"`
	Title      string `json:"title"`
	TimingType string `json:"timing_type"`
	NotifyUnix int64  `json:"notify_unix"`
	Region     string `json:"region,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Character  string `json:"character_name,omitempty"`
	Sent       bool   `json:"sent"`
}

func toPendingRows(rows []*notify.Pending) []pendingRow {
	out := make([]pendingRow, 0, len(rows))
	for _, p := range rows {
		out = append(out, pendingRow{
			ID:         p.ID,
			Profile:    p.Profile,
			Category:   p.Category,
			Title:      p.Title,
			TimingType: p.TimingType,
			NotifyUnix: p.NotifyUnix,
			Region:     p.Region,
			Phase:      p.Phase,
			Character:  p.CharacterName,
			Sent:       p.Sent,
		})
	}
	return out
}

// ListNotifications returns pending notification rows.
// @Summary List pending notifications
// @Tags notifications
// @Produce json
// @Param limit query int false "Max rows" default(100)
// @Success 200 {array} handler.pendingRow
// @Router /api/v1/notifications [get]
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	rows, err := h.notifs.ListPending(r.Context(), limit)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, toPendingRows(rows))
}

// PendingCount returns the number of unsent notifications.
// @Summary Count pending notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /api/v1/notifications/pending/count [get]
func (h *Handler) PendingCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifs.Count(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]int64{"pending": n})
}

// ClearNotifications deletes all notification rows.
// @Summary Clear all notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /api/v1/notifications [delete]
func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifs.DeleteAll(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	h.logger.Info("notifications cleared via API", "removed", n)
	respond.WriteJSONObject(w, http.StatusOK, map[string]int64{"removed": n})
}

// Reconcile runs a full reconciliation pass.
// @Summary Run reconciliation
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/reconcile [post]
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	res, err := h.reconciler.Run(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "RECONCILE_ERROR", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]int64{
		"ghosts_removed":     res.Ghosts,
		"events_fixed":       int64(res.Fixed),
		"duplicates_removed": res.Duplicates,
		"expired_removed":    res.Expired,
	})
}

// eventRow is the wire shape of one event.
type eventRow struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Profile   string `json:"profile"`
	Category  string `json:"category"`
	Title     string `json:"title"`
	StartUnix int64  `json:"start_unix"`
	EndUnix   int64  `json:"end_unix"`
}

// ListEvents returns events for one profile.
// @Summary List events for a profile
// @Tags events
// @Produce json
// @Param profile path string true "Profile code (AK, HSR, UMA, ...)"
// @Success 200 {array} handler.eventRow
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/events/{profile} [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	profile := game.NormalizeProfile(chi.URLParam(r, "profile"))
	if _, ok := h.games.Get(profile); !ok {
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_PROFILE", "unknown profile "+profile)
		return
	}

	events, err := h.events.GetAll(r.Context(), profile)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	out := make([]eventRow, 0, len(events))
	for _, e := range events {
		out = append(out, eventRow{
			ID:        e.ID,
			Key:       e.Key.String(),
			Profile:   e.Profile,
			Category:  e.Category,
			Title:     e.Title,
			StartUnix: e.StartUnix,
			EndUnix:   e.EndUnix,
		})
	}
	respond.WriteJSONObject(w, http.StatusOK, out)
}

// eventDetail is eventRow plus the event's notification rows.
type eventDetail struct {
	eventRow
	Description   string       `json:"description,omitempty"`
	Notifications []pendingRow `json:"notifications"`
}

// GetEventByKey returns one event addressed by its durable key, with its
// notification rows.
// @Summary Get an event by durable key
// @Tags events
// @Produce json
// @Param key path string true "Event key (uuid)"
// @Success 200 {object} handler.eventDetail
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/events/key/{key} [get]
func (h *Handler) GetEventByKey(w http.ResponseWriter, r *http.Request) {
	key, err := uuid.Parse(chi.URLParam(r, "key"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_KEY", "key must be a uuid")
		return
	}

	e, err := h.events.GetByKey(r.Context(), key)
	if errors.Is(err, event.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "EVENT_NOT_FOUND", "no event with key "+key.String())
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	rows, err := h.notifs.ListForEvent(r.Context(),
		notify.EventRef{Profile: e.Profile, Title: e.Title, Category: e.Category})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, eventDetail{
		eventRow: eventRow{
			ID:        e.ID,
			Key:       e.Key.String(),
			Profile:   e.Profile,
			Category:  e.Category,
			Title:     e.Title,
			StartUnix: e.StartUnix,
			EndUnix:   e.EndUnix,
		},
		Description:   e.Description,
		Notifications: toPendingRows(rows),
	})
}
