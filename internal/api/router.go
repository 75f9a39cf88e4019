package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"campaignkit-reference/internal/observability"
)

func Router(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/campaigns", h.ListCampaigns)
		r.Get("/campaigns/{index}", h.GetCampaign)
		r.Delete("/campaigns/{index}", h.RemoveCampaign)

		r.Get("/main", h.MainState)
		r.Post("/main/start", h.Start())
		r.Post("/main/stop", h.Stop())
		r.Post("/main/permission", h.PermissionResult())
		r.Post("/main/resolution", h.ResolutionResult())
		r.Post("/main/dialog/dismiss", h.DismissDialog())

		r.Get("/detail", h.DetailPage)
		r.Get("/notifications", h.Notifications)
		r.Post("/kit/events", h.KitEvent)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}
