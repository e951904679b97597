package web

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/gekko3d/balok"
)

func (s *Server) HandlerJsonFigure(w http.ResponseWriter, r *http.Request) {
	frame := s.Hub.LastFrame()
	if frame == nil {
		WriteError(w, http.StatusServiceUnavailable, errors.New("no frame rendered yet"))
		return
	}
	WriteResult(w, "application/json", frame)
}

func (s *Server) HandlerJsonJoints(w http.ResponseWriter, r *http.Request) {
	WriteJson(w, s.Hub.Joints())
}

func (s *Server) HandlerJsonPose(w http.ResponseWriter, r *http.Request) {
	preset := s.Hub.Preset()
	if preset == nil {
		WriteError(w, http.StatusServiceUnavailable, errors.New("no frame rendered yet"))
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+preset.Figure+"_pose.json\"")
	WriteJson(w, preset)
}

// HandlerActionPose applies a preset posted as JSON body.
func (s *Server) HandlerActionPose(w http.ResponseWriter, r *http.Request) {
	var preset balok.PosePreset
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&preset); err != nil {
		WriteError(w, http.StatusBadRequest, errors.Wrap(err, "Failed to unmarshal"))
		return
	}
	for name := range preset.Joints {
		if !s.Hub.HasJoint(name) {
			WriteError(w, http.StatusNotFound, errors.Wrapf(balok.ErrUnknownJoint, "%q", name))
			return
		}
	}
	preset.Apply(s.Queue)
	WriteJson(w, map[string]int{"joints": len(preset.Joints)})
}

func (s *Server) HandlerTexture(w http.ResponseWriter, r *http.Request) {
	if s.Assets == nil {
		WriteError(w, http.StatusNotFound, errors.New("no texture"))
		return
	}
	data, err := s.Assets.EncodePNG(s.Texture)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	WriteFile(w, "image/png", bytes.NewReader(data))
}

func (s *Server) HandlerActionJoint(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	raw := r.FormValue("angle")
	angle, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(angle) || math.IsInf(angle, 0) {
		WriteError(w, http.StatusBadRequest, errors.Errorf("angle %q is not a finite number", raw))
		return
	}
	if err := s.Hub.Apply(Command{Joint: name, Angle: &angle}); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, balok.ErrUnknownJoint) {
			status = http.StatusNotFound
		}
		WriteError(w, status, err)
		return
	}
	WriteJson(w, map[string]interface{}{"joint": name, "angle": angle})
}

func (s *Server) HandlerActionSpin(w http.ResponseWriter, r *http.Request) {
	mode := mux.Vars(r)["mode"]
	spin, err := balok.ParseSpinCommand(mode)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.Queue.SetSpin(spin)
	WriteJson(w, map[string]string{"spin": spin.String()})
}

func (s *Server) HandlerActionReset(w http.ResponseWriter, r *http.Request) {
	s.Queue.ResetPose()
	WriteJson(w, map[string]bool{"reset": true})
}
