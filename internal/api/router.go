package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/panel"
)

// healthCheckTimeout bounds each component check in GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.collector != nil && s.metricsCfg.Enabled {
		r.Handle(s.metricsCfg.Path, s.collector.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/catalog", s.handleGetCatalog)
		r.Get("/system/status", s.handleSystemStatus)

		r.Route("/config", func(r chi.Router) {
			r.Get("/", s.handleGetConfig)
			r.Put("/", s.handleReplaceConfig)
			r.Post("/save", s.handleSaveConfig)
			r.Post("/reset", s.handleResetConfig)
			r.Get("/revisions", s.handleListRevisions)
			r.Get("/history", s.handleListHistory)
			r.Post("/revisions/{id}/restore", s.handleRestoreRevision)
		})

		r.Route("/instances", func(r chi.Router) {
			r.Post("/", s.handleAddInstance)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetInstance)
				r.Put("/", s.handleUpdateInstance)
				r.Patch("/", s.handleInputChange)
				r.Delete("/", s.handleDeleteInstance)
				r.Put("/type", s.handleChangeType)
				r.Put("/units", s.handleChangeUnits)
			})
		})

		r.Put("/sensors/{id}/targets/{device}", s.handleSensorTargetSelect)

		r.Route("/ir_blaster", func(r chi.Router) {
			r.Put("/", s.handleSetIRBlaster)
			r.Delete("/", s.handleRemoveIRBlaster)
			r.Put("/targets/{target}", s.handleIRTargetSelect)
		})

		r.Get("/api-target/options", s.handleAPITargetOptions)

		r.Get("/ws", s.handleWebSocket)
	})

	if s.ui != nil {
		r.Handle("/*", panel.Handler(s.ui))
	}

	return r
}

// handleHealth reports the server version and the state of each checked
// component. Any failing check turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.checks))
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"node":       s.service.Node(),
		"components": components,
	})
}
