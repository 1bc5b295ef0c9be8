package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lazypower/nanobrain/internal/brain"
	"github.com/lazypower/nanobrain/internal/store"
)

const (
	defaultChatUser  = "guest"
	defaultAdminUser = "global"
)

func orDefault(id, def string) string {
	if strings.TrimSpace(id) == "" {
		return def
	}
	return id
}

// writeEngineError maps engine failures onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var se *store.StorageError
	if errors.As(err, &se) {
		writeError(w, http.StatusInternalServerError, "storage "+se.Op+" failed")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	reply, err := s.engine.SubmitMessage(orDefault(req.UserID, defaultChatUser), req.Message)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleTeach(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Cmd    string `json:"cmd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Cmd) == "" {
		writeError(w, http.StatusBadRequest, "cmd required")
		return
	}

	result, err := s.engine.Teach(orDefault(req.UserID, defaultAdminUser), req.Cmd)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "result": result})
}

func (s *Server) handleSetTone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Tone   string `json:"tone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	tone, ok := brain.ParseTone(req.Tone)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown tone")
		return
	}

	stored, err := s.engine.SetTone(orDefault(req.UserID, defaultChatUser), string(tone))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "tone": stored})
}

// handleMemory returns the full brain to key holders and the context view
// to everyone else.
func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	userID := orDefault(r.URL.Query().Get("user_id"), defaultChatUser)

	mem, err := s.engine.GetMemory(userID, s.authorized(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mem)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.engine.ListUsers()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": s.engine.Flush()})
}
