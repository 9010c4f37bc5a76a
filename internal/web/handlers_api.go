package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"scenepanel/internal/association"
	"scenepanel/internal/controller"
	"scenepanel/internal/mode"
	"scenepanel/internal/profile"
	"scenepanel/internal/scene"
	"scenepanel/internal/store"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleAPIListProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.panel.Profiles().All())
}

func (s *Server) handleAPIListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.panel.Store().ListDevices()
	if err != nil {
		s.logger.Error("list devices", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleAPISaveDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	var dev store.Device
	if !s.decode(w, r, &dev) {
		return
	}
	dev.ID = id
	if err := s.panel.Store().SaveDevice(&dev); err != nil {
		s.logger.Error("save device", "err", err, "device", id)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.panel.Events().Emit(controller.Event{Type: controller.EventDeviceUpdated, Device: dev.ID, Data: &dev})
	s.writeJSON(w, http.StatusOK, &dev)
}

func (s *Server) handleAPIDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := s.panel.Store().DeleteDevice(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type setVariablesRequest struct {
	Service string            `json:"service"`
	Values  map[string]string `json:"values"`
}

func (s *Server) handleAPISetVariables(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	var req setVariablesRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Values) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "values must not be empty"})
		return
	}
	if req.Service == "" {
		req.Service = profile.ServiceID
	}
	if _, err := s.panel.Store().GetDevice(id); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.panel.Store().SetVariables(id, req.Service, req.Values); err != nil {
		s.logger.Error("set variables", "err", err, "device", id)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.panel.Events().Emit(controller.Event{Type: controller.EventVariablesChanged, Device: id, Data: controller.VariablesChange{
		Service: req.Service, Values: req.Values,
	}})
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIListControllers(w http.ResponseWriter, r *http.Request) {
	controllers, err := s.panel.Controllers()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if controllers == nil {
		controllers = []*controller.Controller{}
	}
	s.writeJSON(w, http.StatusOK, controllers)
}

func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	var screen profile.ScreenAddress
	if raw := r.PathValue("screen"); raw != "current" {
		var err error
		if screen, err = profile.ParseScreenAddress(raw); err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	view, err := s.panel.View(r.Context(), id, screen)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type setScreenRequest struct {
	Screen profile.ScreenAddress `json:"screen"`
}

func (s *Server) handleAPISetScreen(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	var req setScreenRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.panel.SetScreen(r.Context(), id, req.Screen); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "screen": req.Screen.String()})
}

type setLanguageRequest struct {
	Language int `json:"language"`
}

func (s *Server) handleAPISetLanguage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	var req setLanguageRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.panel.SetPresetLanguage(r.Context(), id, req.Language); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "language": req.Language})
}

func (s *Server) handleAPIChangeLabel(w http.ResponseWriter, r *http.Request) {
	id, screen, ok := s.controllerScreen(w, r)
	if !ok {
		return
	}
	button, ok := s.pathInt(w, r, "button")
	if !ok {
		return
	}
	var req controller.LabelChange
	if !s.decode(w, r, &req) {
		return
	}
	req.Screen, req.Button = screen, button
	modeStr, err := s.panel.ChangeLabel(r.Context(), id, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": modeStr})
}

type associationRequest struct {
	association.Edit
	// Confirm accepts a destructive edit. Without it such an edit is
	// answered with 409 and the decision to confirm.
	Confirm bool `json:"confirm"`
}

func (s *Server) handleAPIAssociation(w http.ResponseWriter, r *http.Request) {
	id, screen, ok := s.controllerScreen(w, r)
	if !ok {
		return
	}
	button, ok := s.pathInt(w, r, "button")
	if !ok {
		return
	}
	slot, ok := s.pathInt(w, r, "slot")
	if !ok {
		return
	}
	var req associationRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Slot = slot

	confirm := association.ConfirmFunc(func(association.Decision) bool { return req.Confirm })
	res, err := s.panel.SelectDirectDevice(r.Context(), id, screen, button, req.Edit, confirm)
	if errors.Is(err, association.ErrDeclined) {
		s.writeJSON(w, http.StatusConflict, res)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAPITimeout(w http.ResponseWriter, r *http.Request) {
	id, screen, ok := s.controllerScreen(w, r)
	if !ok {
		return
	}
	var req controller.TimeoutChange
	if !s.decode(w, r, &req) {
		return
	}
	got, err := s.panel.ChangeTimeout(r.Context(), id, screen, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, got)
}

type linesRequest struct {
	Lines int `json:"lines"`
}

func (s *Server) handleAPILines(w http.ResponseWriter, r *http.Request) {
	id, screen, ok := s.controllerScreen(w, r)
	if !ok {
		return
	}
	var req linesRequest
	if !s.decode(w, r, &req) {
		return
	}
	lines, err := s.panel.ChangeNumLines(r.Context(), id, screen, req.Lines)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, linesRequest{Lines: lines})
}

type temperatureRequest struct {
	Device int `json:"device"`
}

func (s *Server) handleAPITemperature(w http.ResponseWriter, r *http.Request) {
	id, screen, ok := s.controllerScreen(w, r)
	if !ok {
		return
	}
	var req temperatureRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.panel.SelectTemperatureDevice(r.Context(), id, screen, req.Device); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "device": req.Device})
}

type sceneResponse struct {
	Scene   *scene.Scene `json:"scene"`
	Created bool         `json:"created"`
}

func (s *Server) handleAPISetScene(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	var req controller.SceneRequest
	if !s.decode(w, r, &req) {
		return
	}
	sc, created, err := s.panel.SetScene(r.Context(), id, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, sceneResponse{Scene: sc, Created: created})
}

func (s *Server) handleAPICopyLines(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	var req controller.CopyRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.SourceDevice = id
	if req.DestDevice == 0 {
		req.DestDevice = id
	}
	if err := s.panel.CopyLines(r.Context(), req); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIListScenes(w http.ResponseWriter, r *http.Request) {
	var (
		scenes []scene.Scene
		err    error
	)
	if raw := r.URL.Query().Get("device"); raw != "" {
		device, convErr := strconv.Atoi(raw)
		if convErr != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid device"})
			return
		}
		scenes, err = s.panel.Scenes().ListByDevice(r.Context(), device)
	} else {
		scenes, err = s.panel.Scenes().List(r.Context())
	}
	if err != nil {
		s.logger.Error("list scenes", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if scenes == nil {
		scenes = []scene.Scene{}
	}
	s.writeJSON(w, http.StatusOK, scenes)
}

type parseModeRequest struct {
	Profile string `json:"profile"`
	Mode    string `json:"mode"`
}

type parseModeResponse struct {
	Descriptor mode.Descriptor `json:"descriptor"`
	Canonical  string          `json:"canonical"`
	Error      string          `json:"error,omitempty"`
}

func (s *Server) handleAPIParseMode(w http.ResponseWriter, r *http.Request) {
	var req parseModeRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, ok := s.panel.Profiles().Get(req.Profile)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
		return
	}
	d, err := mode.ParseStrict(p, req.Mode, nil)
	resp := parseModeResponse{Descriptor: d, Canonical: mode.Generate(p, d)}
	if err != nil {
		resp.Error = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type generateModeRequest struct {
	Profile    string          `json:"profile"`
	Descriptor mode.Descriptor `json:"descriptor"`
}

func (s *Server) handleAPIGenerateMode(w http.ResponseWriter, r *http.Request) {
	var req generateModeRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, ok := s.panel.Profiles().Get(req.Profile)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
		return
	}
	mode.Normalize(p, &req.Descriptor)
	if err := mode.Validate(req.Descriptor); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"mode": mode.Generate(p, req.Descriptor)})
}

// controllerScreen reads the {id} and {screen} path values.
func (s *Server) controllerScreen(w http.ResponseWriter, r *http.Request) (int, profile.ScreenAddress, bool) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return 0, profile.ScreenAddress{}, false
	}
	screen, err := profile.ParseScreenAddress(r.PathValue("screen"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return 0, profile.ScreenAddress{}, false
	}
	return id, screen, true
}

func (s *Server) pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil || n < 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// writeError maps panel errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, scene.ErrSceneNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, controller.ErrUnknownProfile), errors.Is(err, controller.ErrNotSupported):
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, controller.ErrInvalidArgument),
		errors.Is(err, controller.ErrInvalidTimeout),
		errors.Is(err, association.ErrSlotLimit),
		errors.Is(err, association.ErrSlotRange),
		errors.Is(err, scene.ErrUnknownScreenType):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("request failed", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON encode failed", "err", err)
	}
}
