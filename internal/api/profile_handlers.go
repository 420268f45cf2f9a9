package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BTreeMap/Lantern/internal/companion"
	"github.com/BTreeMap/Lantern/internal/models"
)

// Feedback listing limits.
const (
	DefaultFeedbackLimit = 50
	MaxFeedbackLimit     = 500
)

// getPreferencesHandler handles GET /api/preferences
func (s *Server) getPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	prefs, err := s.st.GetPreferences(uid)
	if err != nil {
		slog.Error("Server.getPreferencesHandler: failed to load preferences", "userID", uid, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load preferences"))
		return
	}
	if prefs == nil {
		empty := models.NewUserPreferences(uid)
		prefs = &empty
	}
	writeJSONResponse(w, http.StatusOK, models.Success(prefs))
}

// updatePreferencesHandler handles POST /api/preferences
func (s *Server) updatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PreferencesUpdate
	if !decodeJSON(w, r, "updatePreferencesHandler", &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	prefs, err := s.savePreferences(userID(r), req)
	if err != nil {
		slog.Error("Server.updatePreferencesHandler: failed to save preferences", "userID", userID(r), "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save preferences"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Preferences saved", prefs))
}

func (s *Server) savePreferences(uid string, update models.PreferencesUpdate) (models.UserPreferences, error) {
	current := models.NewUserPreferences(uid)
	saved, err := s.st.GetPreferences(uid)
	if err != nil {
		return models.UserPreferences{}, err
	}
	if saved != nil {
		current = *saved
	}
	prefs := update.Apply(current, s.now())
	if err := s.st.SavePreferences(prefs); err != nil {
		return models.UserPreferences{}, err
	}
	return prefs, nil
}

func (s *Server) saveMemory(uid string, update models.MemoryUpdate) (models.UserMemory, error) {
	current := models.UserMemory{UserID: uid}
	saved, err := s.st.GetMemory(uid)
	if err != nil {
		return models.UserMemory{}, err
	}
	if saved != nil {
		current = *saved
	}
	mem := update.Apply(current, s.now())
	if err := s.st.SaveMemory(mem); err != nil {
		return models.UserMemory{}, err
	}
	return mem, nil
}

func (s *Server) loadProfile(uid string) (models.UserProfile, error) {
	prefs, err := s.st.GetPreferences(uid)
	if err != nil {
		return models.UserProfile{}, err
	}
	mem, err := s.st.GetMemory(uid)
	if err != nil {
		return models.UserProfile{}, err
	}
	return models.UserProfile{Preferences: prefs, Memory: mem}, nil
}

// getProfileHandler handles GET /api/profile
func (s *Server) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := s.loadProfile(userID(r))
	if err != nil {
		slog.Error("Server.getProfileHandler: failed to load profile", "userID", userID(r), "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load profile"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

// updateProfileHandler handles POST /api/profile
func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if !decodeJSON(w, r, "updateProfileHandler", &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	uid := userID(r)
	if req.Preferences != nil {
		if _, err := s.savePreferences(uid, *req.Preferences); err != nil {
			slog.Error("Server.updateProfileHandler: failed to save preferences", "userID", uid, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save profile"))
			return
		}
	}
	if req.Memory != nil {
		if _, err := s.saveMemory(uid, *req.Memory); err != nil {
			slog.Error("Server.updateProfileHandler: failed to save memory", "userID", uid, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save profile"))
			return
		}
	}

	profile, err := s.loadProfile(uid)
	if err != nil {
		slog.Error("Server.updateProfileHandler: failed to reload profile", "userID", uid, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load profile"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Profile saved", profile))
}

// deleteProfileHandler handles DELETE /api/profile
func (s *Server) deleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if err := s.st.DeleteProfile(uid); err != nil {
		slog.Error("Server.deleteProfileHandler: delete failed", "userID", uid, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete profile"))
		return
	}
	slog.Info("Server.deleteProfileHandler: profile deleted", "userID", uid)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Profile deleted", nil))
}

// listFeedbackHandler handles GET /api/feedback?limit=
func (s *Server) listFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	limit := DefaultFeedbackLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxFeedbackLimit {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("limit must be an integer between 1 and "+strconv.Itoa(MaxFeedbackLimit)))
			return
		}
		limit = n
	}
	feedback, err := s.st.ListFeedback(userID(r), limit)
	if err != nil {
		slog.Error("Server.listFeedbackHandler: failed to list feedback", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load feedback"))
		return
	}
	if feedback == nil {
		feedback = []models.Feedback{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(feedback))
}

// feedbackStatsHandler handles GET /api/feedback/stats
func (s *Server) feedbackStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.st.FeedbackStats()
	if err != nil {
		slog.Error("Server.feedbackStatsHandler: failed to aggregate feedback", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load feedback stats"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(stats))
}

// rememberHelpful records what helped a signed-in user. Failures are logged only.
func (s *Server) rememberHelpful(uid string, fb models.Feedback) {
	if uid == "" || fb.Rating < models.HelpfulRating {
		return
	}
	current := models.NewUserPreferences(uid)
	saved, err := s.st.GetPreferences(uid)
	if err != nil {
		slog.Warn("Server.rememberHelpful: failed to load preferences", "userID", uid, "error", err)
		return
	}
	if saved != nil {
		current = *saved
	}
	updated, ok := current.RecordHelpful(fb.RoutineID, fb.PlaybookID, fb.Rating, s.now())
	if !ok {
		return
	}
	if err := s.st.SavePreferences(updated); err != nil {
		slog.Warn("Server.rememberHelpful: failed to save preferences", "userID", uid, "error", err)
	}
}

// personalization returns what the caller's preferences add to a playbook turn,
// or nil for anonymous callers and users with nothing saved.
func (s *Server) personalization(r *http.Request, playbookID string) *models.PersonalizationContext {
	uid := userID(r)
	if uid == "" {
		return nil
	}
	prefs, err := s.st.GetPreferences(uid)
	if err != nil {
		slog.Warn("Server.personalization: failed to load preferences", "userID", uid, "error", err)
		return nil
	}
	if prefs == nil {
		return nil
	}
	p := prefs.Personalization(playbookID)
	return &p
}

// loadAccountContext fills the saved profile of a signed-in caller into req.
// Failures are logged and the turn goes ahead without it.
func (s *Server) loadAccountContext(r *http.Request, req *companion.Request) {
	uid := userID(r)
	if uid == "" {
		return
	}
	profile, err := s.loadProfile(uid)
	if err != nil {
		slog.Warn("Server.loadAccountContext: failed to load profile", "userID", uid, "error", err)
		return
	}
	if p := profile.Preferences; p != nil {
		req.AccountProfile = companion.Profile{
			Vibe:        string(p.Vibe),
			CopingStyle: string(p.CopingStyle),
			Routines:    append([]string(nil), p.Routines...),
		}
	}
	if m := profile.Memory; m != nil {
		req.AccountMemory = companion.Memory{LastGoal: m.LastGoal, LastCheckin: m.LastCheckin}
	}
}
