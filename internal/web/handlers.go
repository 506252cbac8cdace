package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/rules"
	"github.com/JonMunkholm/discrepancy/internal/store"
)

// MaxLimit caps the number of discrepancies returned per request.
const MaxLimit = 1000

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"rules":   rules.Names(),
		"default": rules.DefaultRules,
	})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.store.FindDocument(r.Context(), id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, newDocumentView(doc))
}

func (s *Server) handleDocumentDiscrepancies(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Distinguish an unknown document from one without findings.
	if _, err := s.store.FindDocument(r.Context(), id); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	filter.DocumentID = id

	s.listDiscrepancies(w, r, filter)
}

func (s *Server) handleDiscrepancies(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	s.listDiscrepancies(w, r, filter)
}

func (s *Server) listDiscrepancies(w http.ResponseWriter, r *http.Request, filter store.Filter) {
	recs, err := s.store.FindDiscrepancies(r.Context(), filter)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	views := make([]discrepancyView, len(recs))
	for i, rec := range recs {
		views[i] = newDiscrepancyView(rec)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"discrepancies": views,
		"count":         len(views),
	})
}

// parseFilter reads kind, rule, document and limit query parameters.
func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	f := store.Filter{
		DocumentID: q.Get("document"),
		Kind:       discrepancy.Kind(q.Get("kind")),
		Rule:       q.Get("rule"),
		Limit:      MaxLimit,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return store.Filter{}, fmt.Errorf("invalid limit %q", raw)
		}
		f.Limit = min(n, MaxLimit)
	}
	return f, nil
}
