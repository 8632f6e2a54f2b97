package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Tender/internal/procurement"
)

func NewRouter(svc *procurement.Service, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	packages := NewPackagesHandler(svc)
	bids := NewBidsHandler(svc)
	evaluations := NewEvaluationsHandler(svc)
	awards := NewAwardHandler(svc)
	explain := NewExplainHandler(svc)
	admin := NewAdminHandler(svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ActorIDMiddleware)

		r.Post("/packages", packages.Create)
		r.Get("/packages", packages.List)
		r.Get("/packages/{id}", packages.Get)
		r.Post("/packages/{id}/transition", packages.Transition)
		r.Get("/packages/{id}/events", packages.Events)

		r.Post("/packages/{id}/bids", bids.Submit)
		r.Get("/packages/{id}/bids", bids.List)
		r.Post("/packages/{id}/bids/{bid_id}/supersede", bids.Supersede)
		r.Put("/packages/{id}/bids/{bid_id}/compliance", bids.Compliance)

		r.Post("/packages/{id}/evaluate", evaluations.Evaluate)
		r.Get("/packages/{id}/evaluation", evaluations.Latest)
		r.Get("/packages/{id}/evaluations", evaluations.History)

		r.Post("/packages/{id}/award", awards.Award)
		r.Post("/packages/{id}/change-orders", awards.ChangeOrder)
		r.Get("/packages/{id}/contract", awards.Contract)

		r.Get("/scoring/explain/{package_id}/{bid_id}", explain.Explain)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/stats", admin.Stats)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
