package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

type addInstanceRequest struct {
	Category nodeconfig.Category `json:"category"`
}

type inputChangeRequest struct {
	Param string `json:"param"`
	Value any    `json:"value"`
}

type changeTypeRequest struct {
	Category nodeconfig.Category `json:"category"`
	Type     string              `json:"type"`
}

type changeUnitsRequest struct {
	Units string `json:"units"`
}

type selectRequest struct {
	Checked *bool `json:"checked"`
}

// instanceResponse carries one instance with its identity.
type instanceResponse struct {
	ID       string               `json:"id"`
	Key      string               `json:"key"`
	Instance *nodeconfig.Instance `json:"instance"`
}

// pathInstanceID reads and validates the instance ID in a URL parameter.
// It writes a 400 response and returns false when the ID is malformed.
func pathInstanceID(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	id := chi.URLParam(r, param)
	if _, _, err := nodeconfig.ParseID(id); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return "", false
	}
	return id, true
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// handleAddInstance appends an unconfigured instance to a category.
func (s *Server) handleAddInstance(w http.ResponseWriter, r *http.Request) {
	var req addInstanceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.store.AddInstance(req.Category)
	if err != nil {
		s.writeConfigError(w, err)
		return
	}
	key, _ := s.store.Key(id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "key": key})
}

// handleGetInstance returns one instance with its registry key.
func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInstanceID(w, r, "id")
	if !ok {
		return
	}
	s.writeInstance(w, id)
}

// handleDeleteInstance deletes an instance. Later instances of the category
// are renumbered, so the response is the whole snapshot.
func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInstanceID(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteInstance(id); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.writeConfigView(w, http.StatusOK)
}

// handleInputChange sets one parameter of an instance.
func (s *Server) handleInputChange(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInstanceID(w, r, "id")
	if !ok {
		return
	}
	var req inputChangeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.HandleInputChange(id, req.Param, req.Value); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.writeInstance(w, id)
}

// handleUpdateInstance replaces a whole instance record. The body is the
// flat record including _type.
func (s *Server) handleUpdateInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInstanceID(w, r, "id")
	if !ok {
		return
	}
	var inst nodeconfig.Instance
	if !decodeBody(w, r, &inst) {
		return
	}

	if err := s.store.HandleInstanceUpdate(id, &inst); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.writeInstance(w, id)
}

// handleChangeType switches an instance to a fresh template of another type.
func (s *Server) handleChangeType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInstanceID(w, r, "id")
	if !ok {
		return
	}
	var req changeTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Category == "" {
		req.Category = nodeconfig.CategoryOf(id)
	}

	if err := s.store.ChangeInstanceType(id, req.Category, req.Type); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.writeInstance(w, id)
}

// handleChangeUnits converts a thermostat sensor to other temperature units.
func (s *Server) handleChangeUnits(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInstanceID(w, r, "id")
	if !ok {
		return
	}
	var req changeUnitsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.ChangeUnits(id, req.Units); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.writeInstance(w, id)
}

// handleSensorTargetSelect checks or unchecks a device in a sensor's targets.
func (s *Server) handleSensorTargetSelect(w http.ResponseWriter, r *http.Request) {
	sensorID, ok := pathInstanceID(w, r, "id")
	if !ok {
		return
	}
	deviceID, ok := pathInstanceID(w, r, "device")
	if !ok {
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

	if err := s.store.HandleSensorTargetSelect(sensorID, deviceID, *req.Checked); err != nil {
		s.writeConfigError(w, err)
		return
	}
	s.writeInstance(w, sensorID)
}

func (s *Server) writeInstance(w http.ResponseWriter, id string) {
	cfg, keys, _ := s.store.View()
	inst, ok := cfg.Get(id)
	if !ok {
		writeNotFound(w, "instance not found")
		return
	}
	writeJSON(w, http.StatusOK, instanceResponse{ID: id, Key: keys[id], Instance: inst})
}
