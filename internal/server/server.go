// Package server wires the parsing engine, the catalog store, and the
// order service into a small JSON API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"orderdesk/internal"
	"orderdesk/internal/orders"
	"orderdesk/internal/storage"
)

type Server struct {
	db     *storage.DB
	local  internal.Parser
	ai     internal.Parser
	orders *orders.Service
	log    zerolog.Logger
}

func New(db *storage.DB, local, ai internal.Parser, ordersSvc *orders.Service, log zerolog.Logger) *Server {
	return &Server{
		db:     db,
		local:  local,
		ai:     ai,
		orders: ordersSvc,
		log:    log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Get("/catalog", s.handleListCatalog)
		r.Get("/aliases", s.handleListAliases)
		r.Put("/aliases", s.handleSetAlias)
		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Patch("/orders/{id}/status", s.handleUpdateOrderStatus)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("requestId", chimiddleware.GetReqID(r.Context())).
			Msg("request")
	})
}
