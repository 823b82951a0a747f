package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// configView is the response body of every endpoint returning the whole
// snapshot. Keys maps instance IDs to their registry keys.
type configView struct {
	Config   *nodeconfig.Config `json:"config"`
	Keys     map[string]string  `json:"keys"`
	Revision uint64             `json:"revision"`
}

func (s *Server) writeConfigView(w http.ResponseWriter, status int) {
	cfg, keys, rev := s.store.View()
	writeJSON(w, status, configView{Config: cfg, Keys: keys, Revision: rev})
}

// handleGetConfig returns the current snapshot with its keys.
func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	s.writeConfigView(w, http.StatusOK)
}

// handleReplaceConfig installs a whole config, for example one uploaded
// from a file. The body is the bare config object.
func (s *Server) handleReplaceConfig(w http.ResponseWriter, r *http.Request) {
	var cfg nodeconfig.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid config: "+err.Error())
		return
	}
	if err := s.store.Replace(&cfg); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.writeConfigView(w, http.StatusOK)
}

// handleSaveConfig persists the current snapshot as a new revision.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	rev, err := s.service.Save(r.Context())
	if err != nil {
		s.writeConfigError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}

// handleListRevisions lists saved revisions, newest first.
//
// Query parameters:
//   - limit: page size (default 20, max 200)
func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	revisions, err := s.service.Revisions(r.Context(), limit)
	if err != nil {
		s.writeConfigError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revisions, "count": len(revisions)})
}

// handleRestoreRevision installs a saved revision as the current snapshot.
func (s *Server) handleRestoreRevision(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.Restore(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.writeConfigView(w, http.StatusOK)
}

// handleGetCatalog returns the type metadata catalog.
func (s *Server) handleGetCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Catalog())
}
