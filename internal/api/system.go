package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// resetConfirmation must be sent verbatim to reset the config.
const resetConfirmation = "RESET CONFIG"

// ResetRequest selects which parts of the snapshot a reset clears.
type ResetRequest struct {
	ClearInstances bool   `json:"clear_instances"`
	ClearIRBlaster bool   `json:"clear_ir_blaster"`
	ClearWifi      bool   `json:"clear_wifi"`
	ClearMetadata  bool   `json:"clear_metadata"`
	Confirm        string `json:"confirm"`
}

// ResetResponse reports what was cleared.
type ResetResponse struct {
	Status  string         `json:"status"`
	Cleared map[string]int `json:"cleared"`
}

// handleResetConfig clears selected parts of the in-memory snapshot as one
// Replace. Saved revisions are untouched, so a reset can be undone by
// restoring a revision.
func (s *Server) handleResetConfig(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Confirm != resetConfirmation {
		writeBadRequest(w, `confirm field must be exactly "`+resetConfirmation+`"`)
		return
	}
	if !req.ClearInstances && !req.ClearIRBlaster && !req.ClearWifi && !req.ClearMetadata {
		writeBadRequest(w, "at least one clear_* option must be true")
		return
	}

	cfg := s.store.Snapshot()
	cleared := make(map[string]int)

	if req.ClearInstances {
		cleared["instances"] = len(cfg.Instances)
		cfg.Instances = map[string]*nodeconfig.Instance{}
	}
	if req.ClearIRBlaster && cfg.IRBlaster != nil {
		cleared["ir_blaster"] = 1
		cfg.IRBlaster = nil
	}
	if req.ClearWifi {
		cleared["wifi"] = len(cfg.Wifi)
		cfg.Wifi = map[string]any{}
	}
	if req.ClearMetadata {
		cleared["metadata"] = len(cfg.Metadata)
		cfg.Metadata = map[string]any{}
	}

	// IR targets naming cleared instances would fail validation.
	if req.ClearInstances && cfg.IRBlaster != nil {
		kept := cfg.IRBlaster.Target[:0]
		for _, target := range cfg.IRBlaster.Target {
			if !nodeconfig.IsInstanceID(target) {
				kept = append(kept, target)
			}
		}
		cfg.IRBlaster.Target = kept
	}

	if err := s.store.Replace(cfg); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.logger.Info("config reset", "cleared", cleared)
	writeJSON(w, http.StatusOK, ResetResponse{Status: "ok", Cleared: cleared})
}
