package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"orderdesk/internal"
	"orderdesk/internal/orders"
)

type parseRequest struct {
	Text    string `json:"text"`
	StoreID string `json:"storeId,omitempty"`
	Backend string `json:"backend,omitempty"`
}

type parseResponse struct {
	Backend string                `json:"backend"`
	Items   []internal.ParsedItem `json:"items"`
	Summary internal.ParseSummary `json:"summary"`
}

type createOrderRequest struct {
	Text       string `json:"text"`
	StoreID    string `json:"storeId,omitempty"`
	SupplierID string `json:"supplierId,omitempty"`
	Backend    string `json:"backend,omitempty"`
}

type setAliasRequest struct {
	StoreID string `json:"storeId,omitempty"`
	Source  string `json:"source"`
	Target  string `json:"target"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok","service":"orderdesk"}`))
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required", "")
		return
	}

	items, backend, status, err := s.runParse(r.Context(), req.Text, req.StoreID, req.Backend)
	if err != nil {
		s.writeError(w, status, "parse failed", err.Error())
		return
	}

	s.recordRun("api", backend, items)
	s.writeJSON(w, http.StatusOK, parseResponse{
		Backend: backend,
		Items:   items,
		Summary: internal.Summarize(items),
	})
}

func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := s.db.ListCatalogItems(r.URL.Query().Get("supplierId"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "catalog lookup failed", err.Error())
		return
	}
	if items == nil {
		items = []internal.CatalogItem{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleListAliases(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.ListAliases()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "alias lookup failed", err.Error())
		return
	}
	if rows == nil {
		rows = []internal.AliasRow{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"aliases": rows})
}

func (s *Server) handleSetAlias(w http.ResponseWriter, r *http.Request) {
	var req setAliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	source := strings.TrimSpace(req.Source)
	target := strings.TrimSpace(req.Target)
	if source == "" || target == "" {
		s.writeError(w, http.StatusBadRequest, "source and target are required", "")
		return
	}

	if err := s.db.SetAlias(req.StoreID, source, target); err != nil {
		s.writeError(w, http.StatusInternalServerError, "alias save failed", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, internal.AliasRow{Scope: req.StoreID, Source: source, Target: target})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required", "")
		return
	}

	items, backend, status, err := s.runParse(r.Context(), req.Text, req.StoreID, req.Backend)
	if err != nil {
		s.writeError(w, status, "parse failed", err.Error())
		return
	}
	if len(items) == 0 {
		s.writeError(w, http.StatusBadRequest, "no items parsed from text", "")
		return
	}
	s.recordRun("api", backend, items)

	order, err := s.orders.CreateFromParse(req.StoreID, req.SupplierID, items)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "order creation failed", err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "order not found", "")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "order lookup failed", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	next, err := orders.ParseStatus(req.Status)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid status", err.Error())
		return
	}

	order, err := s.orders.UpdateStatus(chi.URLParam(r, "id"), next)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "order not found", "")
		case errors.Is(err, orders.ErrBadTransition):
			s.writeError(w, http.StatusConflict, "status transition not allowed", err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, "status update failed", err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, order)
}

// runParse loads the store context and runs the requested backend. The
// returned status is the HTTP status to use when err is non-nil: backend
// failures map to 502 so the caller can decide about a local retry.
func (s *Server) runParse(ctx context.Context, text, storeID, backend string) ([]internal.ParsedItem, string, int, error) {
	var parser internal.Parser
	switch backend {
	case "", "local":
		parser, backend = s.local, "local"
	case "ai":
		parser = s.ai
	default:
		return nil, "", http.StatusBadRequest, fmt.Errorf("unknown backend: %q", backend)
	}

	catalog, err := s.db.ListCatalogItems("")
	if err != nil {
		return nil, backend, http.StatusInternalServerError, err
	}
	rules, err := s.db.AliasRulesFor(storeID)
	if err != nil {
		return nil, backend, http.StatusInternalServerError, err
	}

	items, err := parser.ParseItems(ctx, text, catalog, rules)
	if err != nil {
		return nil, backend, http.StatusBadGateway, err
	}
	if items == nil {
		items = []internal.ParsedItem{}
	}
	return items, backend, http.StatusOK, nil
}

func (s *Server) recordRun(source, backend string, items []internal.ParsedItem) {
	summary := internal.Summarize(items)
	err := s.db.InsertParseRun(internal.ParseRun{
		Source:   source,
		Backend:  backend,
		Lines:    summary.Lines,
		Matched:  summary.Matched,
		NewItems: summary.NewItems,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("parse run not recorded")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{"error": message}
	if detail != "" {
		resp["detail"] = detail
	}
	_ = json.NewEncoder(w).Encode(resp)
}
