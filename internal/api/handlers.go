package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/AntoineGS/swselect/internal/software"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status       string      `json:"status"`
	Warning      string      `json:"warning,omitempty"`
	Environment  string      `json:"environment"`
	Check        string      `json:"check"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Applied      AppliedJSON `json:"applied"`
	Ready        bool        `json:"ready"`
	Completed    bool        `json:"completed"`
	Changed      bool        `json:"changed"`
}

// AppliedJSON is the last applied selection.
type AppliedJSON struct {
	Environment string   `json:"environment"`
	TxID        string   `json:"tx_id,omitempty"`
	Groups      []string `json:"groups"`
}

// EnvironmentRequest is the body of PUT /environment.
type EnvironmentRequest struct {
	Environment string `json:"environment"`
}

// ToggleResponse is the body returned by POST /addons/{id}/toggle.
type ToggleResponse struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

// ApplyResponse is the body returned by POST /apply.
type ApplyResponse struct {
	Started bool `json:"started"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp StatusResponse
	ok := s.do(w, r, func() {
		applied := s.ctrl.Applied()
		groups := make([]string, len(applied.Groups))
		for i, g := range applied.Groups {
			groups[i] = string(g)
		}

		resp = StatusResponse{
			Status:       s.ctrl.Status(),
			Warning:      s.ctrl.Warning(),
			Environment:  string(s.ctrl.Environment()),
			Check:        s.ctrl.CheckState().Status.String(),
			ErrorMessage: s.ctrl.ErrorMessage(),
			Applied: AppliedJSON{
				Environment: string(applied.Environment),
				TxID:        applied.TxID,
				Groups:      groups,
			},
			Ready:     s.ctrl.Ready(),
			Completed: s.ctrl.Completed(),
			Changed:   s.ctrl.Changed(),
		}
	})
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var view software.View
	if !s.do(w, r, func() { view = s.ctrl.View() }) {
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSelectEnvironment(w http.ResponseWriter, r *http.Request) {
	var req EnvironmentRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Environment == "" {
		respondError(w, http.StatusBadRequest, "environment is required")
		return
	}

	var (
		err  error
		view software.View
	)
	ok := s.do(w, r, func() {
		err = s.ctrl.SwitchEnvironment(software.Environment(req.Environment))
		view = s.ctrl.View()
	})
	if !ok {
		return
	}
	if err != nil {
		respondSelectionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleToggleAddon(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var (
		err      error
		selected bool
	)
	if !s.do(w, r, func() { selected, err = s.ctrl.ToggleAddon(software.Group(id)) }) {
		return
	}
	if err != nil {
		respondSelectionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ToggleResponse{ID: id, Selected: selected})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		started bool
	)
	if !s.do(w, r, func() { started, err = s.ctrl.Apply() }) {
		return
	}
	if err != nil {
		s.logger.Error("applying selection", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("applying selection: %v", err))
		return
	}

	status := http.StatusOK
	if started {
		status = http.StatusAccepted
	}
	respondJSON(w, status, ApplyResponse{Started: started})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	var diff string
	if !s.do(w, r, func() { diff = s.ctrl.PendingChanges() }) {
		return
	}

	respondText(w, http.StatusOK, diff)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")

	var data software.KickstartData
	if !s.do(w, r, func() { data = s.ctrl.Kickstart(title) }) {
		return
	}

	var buf bytes.Buffer
	if err := software.RenderKickstart(&buf, data); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondText(w, http.StatusOK, buf.String())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reload == nil {
		respondError(w, http.StatusNotImplemented, "source reload is not available")
		return
	}

	if !s.do(w, r, func() { s.ctrl.ReloadSource(s.reload) }) {
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"message": software.MsgDownloadingGroups})
}

func respondSelectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, software.ErrUnknownEnvironment), errors.Is(err, software.ErrUnknownGroup):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, software.ErrNoCatalog):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSONBody(r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		return fmt.Errorf("content type %q is not application/json", ct)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("request body contains badly-formed JSON: %w", err)
	}

	return nil
}
