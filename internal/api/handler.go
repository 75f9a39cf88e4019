package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"campaignkit-reference/internal/alert"
	"campaignkit-reference/internal/registry"
	"campaignkit-reference/internal/screen"
)

// UI runs a task on the UI goroutine and waits for it.
type UI interface {
	Post(task func())
	Flush(ctx context.Context) error
}

type Handler struct {
	Reg    *registry.Registry
	Main   *screen.Main
	Detail *screen.Detail
	Tray   *alert.Tray
	UI     UI
	// Events, when set, accepts raw kit event payloads.
	Events func(payload string)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns := h.Reg.Triggered()
	if len(campaigns) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	c, found := h.Reg.CampaignAt(i)
	if !found {
		writeError(w, http.StatusNotFound, registry.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) RemoveCampaign(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	if err := h.Reg.Remove(i); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MainState(w http.ResponseWriter, r *http.Request) {
	if err := h.flush(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.Main.State())
}

// lifecycle runs fn on the UI goroutine and answers with the resulting state.
func (h *Handler) lifecycle(fn func(r *http.Request) (func(), bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, ok := fn(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid parameters")
			return
		}
		h.UI.Post(task)
		h.MainState(w, r)
	}
}

func (h *Handler) Start() http.HandlerFunc {
	return h.lifecycle(func(*http.Request) (func(), bool) { return h.Main.OnStart, true })
}

func (h *Handler) Stop() http.HandlerFunc {
	return h.lifecycle(func(*http.Request) (func(), bool) { return h.Main.OnStop, true })
}

func (h *Handler) PermissionResult() http.HandlerFunc {
	return h.lifecycle(func(r *http.Request) (func(), bool) {
		granted, err := strconv.ParseBool(r.URL.Query().Get("granted"))
		if err != nil {
			return nil, false
		}
		return func() { h.Main.OnPermissionResult(granted) }, true
	})
}

func (h *Handler) ResolutionResult() http.HandlerFunc {
	return h.lifecycle(func(r *http.Request) (func(), bool) {
		ok, err := strconv.ParseBool(r.URL.Query().Get("ok"))
		if err != nil {
			return nil, false
		}
		return func() { h.Main.OnResolutionResult(ok) }, true
	})
}

func (h *Handler) DismissDialog() http.HandlerFunc {
	return h.lifecycle(func(*http.Request) (func(), bool) { return h.Main.OnPlayDialogDismissed, true })
}

func (h *Handler) DetailPage(w http.ResponseWriter, r *http.Request) {
	page := h.Detail.Render(r.URL.Query().Get(alert.KeyCampaignID))
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, page)
		return
	}
	body, err := page.HTML()
	if err != nil {
		log.Error().Err(err).Msg("render detail page")
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tray.Notifications())
}

func (h *Handler) KitEvent(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		writeError(w, http.StatusNotImplemented, "kit events not accepted")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil || !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid event")
		return
	}
	h.Events(string(body))
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) flush(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return h.UI.Flush(ctx)
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return 0, false
	}
	return i, true
}
