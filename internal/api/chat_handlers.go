package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/Lantern/internal/actions"
	"github.com/BTreeMap/Lantern/internal/companion"
	"github.com/BTreeMap/Lantern/internal/models"
)

// chatHandler handles POST /api/chat
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req companion.Request
	if !decodeJSON(w, r, "chatHandler", &req) {
		return
	}
	if err := models.ValidateMessage(req.Message); err != nil {
		slog.Warn("Server.chatHandler: invalid message", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	sessionID := chatSessionID(r, req.SessionID)
	req.SessionID = scopedSessionID(r, sessionID)
	s.loadAccountContext(r, &req)

	reply := s.responder.Respond(r.Context(), req)
	reply.SessionID = sessionID
	slog.Debug("Server.chatHandler: reply ready", "sessionID", sessionID, "crisis", reply.Crisis, "fallback", reply.Fallback)
	writeJSONResponse(w, http.StatusOK, models.Success(reply))
}

// clearChatSessionHandler handles DELETE /api/chat/sessions/{id}
func (s *Server) clearChatSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cleared := s.responder.ClearSession(scopedSessionID(r, id))
	slog.Info("Server.clearChatSessionHandler: session cleared", "sessionID", id, "existed", cleared)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]bool{"cleared": cleared}))
}

type exerciseResult struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// exerciseHandler handles GET /api/chat/exercises/{kind}
func (s *Server) exerciseHandler(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToLower(r.PathValue("kind"))
	switch kind {
	case companion.ExerciseBreathing, companion.ExerciseGrounding, companion.ExerciseMindfulness:
	default:
		kind = companion.ExerciseBreathing
	}
	writeJSONResponse(w, http.StatusOK, models.Success(exerciseResult{Kind: kind, Text: s.responder.QuickExercise(kind)}))
}

type scriptRequest struct {
	Scenario string            `json:"scenario"`
	Tone     string            `json:"tone,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
}

// actionScriptHandler handles POST /api/actions/script
func (s *Server) actionScriptHandler(w http.ResponseWriter, r *http.Request) {
	var req scriptRequest
	if !decodeJSON(w, r, "actionScriptHandler", &req) {
		return
	}
	if strings.TrimSpace(req.Scenario) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("scenario is required"))
		return
	}
	if req.Tone == "" {
		req.Tone = actions.DefaultTone
	}
	script := s.scripts.Generate(req.Scenario, req.Tone, req.Context)
	slog.Debug("Server.actionScriptHandler: script generated", "scenario", req.Scenario, "tone", req.Tone, "title", script.Title)
	writeJSONResponse(w, http.StatusOK, models.Success(script))
}

// actionScenariosHandler handles GET /api/actions/scenarios
func (s *Server) actionScenariosHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string][]string{
		"scenarios": s.scripts.ScenarioIDs(),
		"tones":     s.scripts.Tones,
	}))
}
