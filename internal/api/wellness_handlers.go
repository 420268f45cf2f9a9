package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/Lantern/internal/auth"
	"github.com/BTreeMap/Lantern/internal/models"
	"github.com/BTreeMap/Lantern/internal/weather"
)

// Wellness listing limits.
const (
	DefaultMoodHistoryLimit = 30
	MaxMoodHistoryLimit     = 365
	moodStatsWindow         = 1000
)

type tokenRequest struct {
	NetlinkID string `json:"netlink_id"`
}

type tokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
}

// issueTokenHandler handles POST /api/auth/token
func (s *Server) issueTokenHandler(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Authentication is not configured"))
		return
	}
	var req tokenRequest
	if !decodeJSON(w, r, "issueTokenHandler", &req) {
		return
	}
	netlinkID := strings.ToLower(strings.TrimSpace(req.NetlinkID))
	if netlinkID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("netlink_id is required"))
		return
	}

	uid := auth.UserIDFor(netlinkID)
	tok, err := s.tokens.Issue(uid, netlinkID)
	if err != nil {
		slog.Error("Server.issueTokenHandler: failed to issue token", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to issue token"))
		return
	}
	slog.Info("Server.issueTokenHandler: token issued", "userID", uid)
	writeJSONResponse(w, http.StatusOK, models.Success(tokenResult{
		AccessToken: tok,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL() / time.Second),
		UserID:      uid,
	}))
}

// meHandler handles GET /api/auth/me
func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Authentication is not configured"))
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Authentication required"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(claims))
}

func parseCoordinate(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return v, err == nil
}

// weatherHandler handles GET /api/weather?lat=&lon=
func (s *Server) weatherHandler(w http.ResponseWriter, r *http.Request) {
	if s.weather == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Weather is not configured"))
		return
	}
	q := r.URL.Query()
	lat, latOK := parseCoordinate(q.Get("lat"))
	lon, lonOK := parseCoordinate(q.Get("lon"))
	if !latOK || !lonOK {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("lat and lon are required numbers"))
		return
	}

	cond, err := s.weather.Current(r.Context(), lat, lon)
	switch {
	case errors.Is(err, weather.ErrInvalidCoordinates):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrInvalidLocation.Error()))
	case err != nil:
		slog.Warn("Server.weatherHandler: weather unavailable", "error", err)
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Weather is temporarily unavailable"))
	default:
		writeJSONResponse(w, http.StatusOK, models.Success(cond))
	}
}

type seasonalWeather struct {
	Condition   string   `json:"condition,omitempty"`
	Description string   `json:"description,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type seasonalRequest struct {
	Weather *seasonalWeather `json:"weather,omitempty"`
	Lat     *float64         `json:"lat,omitempty"`
	Lon     *float64         `json:"lon,omitempty"`
}

// seasonalHandler handles POST /api/context/seasonal. It never fails on weather
// errors; without conditions it answers with the time-of-year context only.
func (s *Server) seasonalHandler(w http.ResponseWriter, r *http.Request) {
	var req seasonalRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, "seasonalHandler", &req) {
			return
		}
	}

	now := s.now()
	var current *weather.Conditions
	switch {
	case req.Weather != nil:
		condition := req.Weather.Condition
		if strings.TrimSpace(condition) == "" {
			condition = req.Weather.Description
		}
		writeJSONResponse(w, http.StatusOK, models.Success(weather.Derive(now, condition, req.Weather.Temperature, time.Time{})))
		return
	case s.weather != nil:
		lat, lon := DefaultLatitude, DefaultLongitude
		if req.Lat != nil && req.Lon != nil {
			lat, lon = *req.Lat, *req.Lon
		}
		cond, err := s.weather.Current(r.Context(), lat, lon)
		if err != nil {
			slog.Warn("Server.seasonalHandler: using default context", "error", err)
			break
		}
		current = &cond
		if !cond.Sunset.IsZero() {
			now = now.In(cond.Sunset.Location())
		}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(weather.SeasonalContext(now, current)))
}

// addMoodHandler handles POST /api/mood
func (s *Server) addMoodHandler(w http.ResponseWriter, r *http.Request) {
	var req models.MoodEntryRequest
	if !decodeJSON(w, r, "addMoodHandler", &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	entry, err := s.st.AddMoodEntry(models.MoodEntry{UserID: userID(r), Mood: req.Mood, Note: req.Note})
	if err != nil {
		slog.Error("Server.addMoodHandler: failed to store mood entry", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record mood"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Recorded(entry))
}

// listMoodHandler handles GET /api/mood?limit=
func (s *Server) listMoodHandler(w http.ResponseWriter, r *http.Request) {
	limit := DefaultMoodHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxMoodHistoryLimit {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("limit must be an integer between 1 and "+strconv.Itoa(MaxMoodHistoryLimit)))
			return
		}
		limit = n
	}
	entries, err := s.st.ListMoodEntries(userID(r), limit)
	if err != nil {
		slog.Error("Server.listMoodHandler: failed to list mood entries", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load mood history"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(entries))
}

// moodStatsHandler handles GET /api/mood/stats
func (s *Server) moodStatsHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.st.ListMoodEntries(userID(r), moodStatsWindow)
	if err != nil {
		slog.Error("Server.moodStatsHandler: failed to list mood entries", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load mood stats"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(models.NewMoodStats(entries)))
}

// addFeedbackHandler handles POST /api/feedback
func (s *Server) addFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req models.FeedbackRequest
	if !decodeJSON(w, r, "addFeedbackHandler", &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	fb, err := s.st.AddFeedback(models.Feedback{
		UserID:     userID(r),
		Rating:     req.Rating,
		Note:       req.Note,
		PlaybookID: req.PlaybookID,
		RoutineID:  req.RoutineID,
		ActionID:   req.ActionID,
	})
	if err != nil {
		slog.Error("Server.addFeedbackHandler: failed to store feedback", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record feedback"))
		return
	}
	slog.Debug("Server.addFeedbackHandler: feedback recorded", "id", fb.ID, "rating", fb.Rating, "playbookID", fb.PlaybookID)
	s.rememberHelpful(fb.UserID, fb)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(fb))
}

// addEventHandler handles POST /api/events
func (s *Server) addEventHandler(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if !decodeJSON(w, r, "addEventHandler", &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	ev, err := s.st.AddEvent(models.Event{UserID: userID(r), Type: req.Type, Payload: req.Payload})
	if err != nil {
		slog.Error("Server.addEventHandler: failed to store event", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record event"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Recorded(ev))
}
