package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/BTreeMap/Lantern/internal/intent"
	"github.com/BTreeMap/Lantern/internal/models"
	"github.com/BTreeMap/Lantern/internal/playbook"
	"github.com/BTreeMap/Lantern/internal/resources"
	"github.com/BTreeMap/Lantern/internal/safety"
)

// Resource search limits.
const (
	DefaultSearchLimit = resources.DefaultLimit
	MaxSearchLimit     = 50
)

type healthResult struct {
	Status          string `json:"status"`
	ResourcesLoaded bool   `json:"resources_loaded"`
	Resources       int    `json:"resources"`
	Intents         int    `json:"intents"`
	Playbooks       int    `json:"playbooks"`
	ChatSessions    int    `json:"chat_sessions"`
	ResourceError   string `json:"resource_error,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	res := healthResult{
		Status:          "ok",
		ResourcesLoaded: s.directory.IsLoaded(),
		Resources:       s.directory.Len(),
		Intents:         s.matcher.Len(),
		Playbooks:       len(s.engine.Registry().Playbooks),
		ChatSessions:    s.responder.SessionCount(),
	}
	if err := s.directory.LastError(); err != nil {
		res.Status = "degraded"
		res.ResourceError = err.Error()
	}
	writeJSONResponse(w, http.StatusOK, models.Success(res))
}

type playbookRunRequest struct {
	Message   string                `json:"message"`
	State     *models.PlaybookState `json:"state,omitempty"`
	SessionID string                `json:"session_id,omitempty"`
}

type playbookRunResponse struct {
	playbook.Result
	SessionID       string                         `json:"session_id,omitempty"`
	Personalization *models.PersonalizationContext `json:"personalization,omitempty"`
}

// runPlaybookHandler handles POST /api/playbooks/run
func (s *Server) runPlaybookHandler(w http.ResponseWriter, r *http.Request) {
	var req playbookRunRequest
	if !decodeJSON(w, r, "runPlaybookHandler", &req) {
		return
	}
	if err := models.ValidateMessage(req.Message); err != nil {
		slog.Warn("Server.runPlaybookHandler: invalid message", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if req.State != nil {
		if err := req.State.Validate(); err != nil {
			slog.Warn("Server.runPlaybookHandler: invalid state", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	key := scopedSessionID(r, req.SessionID)

	state := req.State
	if state == nil && req.SessionID != "" {
		stored, err := s.st.GetPlaybookState(key)
		if err != nil {
			slog.Error("Server.runPlaybookHandler: failed to load session state", "sessionID", req.SessionID, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load playbook session"))
			return
		}
		state = stored
	}

	ctx := r.Context()
	result := s.engine.Run(ctx, req.Message, state)
	slog.Debug("Server.runPlaybookHandler: turn complete", "sessionID", req.SessionID,
		"playbookID", result.PlaybookID, "stage", result.Stage)

	if req.SessionID != "" {
		if ctx.Err() != nil {
			slog.Warn("Server.runPlaybookHandler: request canceled, session not saved", "sessionID", req.SessionID, "error", ctx.Err())
			writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Request canceled before the session was saved"))
			return
		}
		if err := s.st.SavePlaybookState(key, result.NextState); err != nil {
			slog.Error("Server.runPlaybookHandler: failed to save session state", "sessionID", req.SessionID, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save playbook session"))
			return
		}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(playbookRunResponse{
		Result:          result,
		SessionID:       req.SessionID,
		Personalization: s.personalization(r, result.PlaybookID),
	}))
}

// resetPlaybookSessionHandler handles DELETE /api/playbooks/sessions/{id}
func (s *Server) resetPlaybookSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.st.DeletePlaybookState(scopedSessionID(r, id)); err != nil {
		slog.Error("Server.resetPlaybookSessionHandler: delete failed", "sessionID", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to reset playbook session"))
		return
	}
	slog.Info("Server.resetPlaybookSessionHandler: session reset", "sessionID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Playbook session reset", nil))
}

type intentMatchRequest struct {
	Message   string   `json:"message"`
	Threshold *float64 `json:"threshold,omitempty"`
}

type intentMatchResult struct {
	Matched bool          `json:"matched"`
	Intent  *intent.Match `json:"intent"`
}

// matchIntentHandler handles POST /api/intents/match
func (s *Server) matchIntentHandler(w http.ResponseWriter, r *http.Request) {
	var req intentMatchRequest
	if !decodeJSON(w, r, "matchIntentHandler", &req) {
		return
	}
	if err := models.ValidateMessage(req.Message); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	threshold := intent.DefaultThreshold
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 1 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("threshold must be between 0 and 1"))
			return
		}
		threshold = *req.Threshold
	}

	m, ok := s.matcher.Match(req.Message, threshold)
	res := intentMatchResult{Matched: ok}
	if ok {
		res.Intent = &m
	}
	writeJSONResponse(w, http.StatusOK, models.Success(res))
}

type detectRequest struct {
	Message string `json:"message"`
}

type detectResult struct {
	Crisis    bool     `json:"crisis"`
	Resources []string `json:"resources"`
	FollowUp  string   `json:"follow_up,omitempty"`
	Checkin   string   `json:"checkin,omitempty"`
}

// detectCrisisHandler handles POST /api/safety/detect
func (s *Server) detectCrisisHandler(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !decodeJSON(w, r, "detectCrisisHandler", &req) {
		return
	}
	res := detectResult{Crisis: safety.Detect(req.Message), Resources: []string{}}
	if res.Crisis {
		res.Resources = safety.ResourceLines(true)
		res.FollowUp = safety.FollowUpQuestion()
		res.Checkin = safety.CheckinMessage()
	}
	writeJSONResponse(w, http.StatusOK, models.Success(res))
}

type searchResult struct {
	Loaded  bool               `json:"loaded"`
	Results []resources.Record `json:"results"`
}

// searchResourcesHandler handles GET /api/resources/search?q=&limit=
func (s *Server) searchResourcesHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := DefaultSearchLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxSearchLimit {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("limit must be an integer between 1 and "+strconv.Itoa(MaxSearchLimit)))
			return
		}
		limit = n
	}
	results := s.directory.Search(query.Get("q"), limit)
	if results == nil {
		results = []resources.Record{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(searchResult{Loaded: s.directory.IsLoaded(), Results: results}))
}

// getResourceHandler handles GET /api/resources/{id}
func (s *Server) getResourceHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok := s.directory.Get(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Resource not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}
