package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// handleSetIRBlaster installs or replaces the IR blaster.
func (s *Server) handleSetIRBlaster(w http.ResponseWriter, r *http.Request) {
	var ir nodeconfig.IRBlaster
	if !decodeBody(w, r, &ir) {
		return
	}
	if err := s.store.SetIRBlaster(&ir); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.writeConfigView(w, http.StatusOK)
}

// handleRemoveIRBlaster removes the IR blaster.
func (s *Server) handleRemoveIRBlaster(w http.ResponseWriter, _ *http.Request) {
	if err := s.store.RemoveIRBlaster(); err != nil {
		s.writeConfigError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleIRTargetSelect checks or unchecks an IR target.
func (s *Server) handleIRTargetSelect(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	if target == "" {
		writeBadRequest(w, "target is required")
		return
	}
	var req selectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Checked == nil {
		writeBadRequest(w, "checked is required")
		return
	}

	if err := s.store.HandleIRTargetSelect(target, *req.Checked); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.writeConfigView(w, http.StatusOK)
}

// handleAPITargetOptions returns the commands an API target may send to the
// node at the given address.
//
// Query parameters:
//   - ip: address of the target node (required)
func (s *Server) handleAPITargetOptions(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("ip")
	if address == "" {
		writeBadRequest(w, "ip query parameter is required")
		return
	}

	table, err := s.store.APITargetOptions(s.resolver, address)
	if err != nil {
		writeNotFound(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": address, "options": table})
}
