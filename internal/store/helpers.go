package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/Lantern/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rebindDollar rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlBackend implements Store over database/sql. Queries are written with ?
// placeholders and rebound when the driver needs positional parameters.
type sqlBackend struct {
	db     *sql.DB
	name   string
	rebind func(string) string
}

func (s *sqlBackend) q(query string) string {
	if s.rebind == nil {
		return query
	}
	return s.rebind(query)
}

func (s *sqlBackend) SavePlaybookState(sessionID string, state models.PlaybookState) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	ctxJSON, err := json.Marshal(state.Context.Clone())
	if err != nil {
		return fmt.Errorf("failed to marshal playbook context: %w", err)
	}
	_, err = s.db.Exec(s.q(`INSERT INTO playbook_sessions (session_id, playbook_id, stage, context, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			playbook_id = excluded.playbook_id,
			stage = excluded.stage,
			context = excluded.context,
			updated_at = excluded.updated_at`),
		sessionID, nilIfEmpty(state.PlaybookID), string(state.Stage), string(ctxJSON), time.Now().UTC())
	if err != nil {
		slog.Error(s.name+".SavePlaybookState: upsert failed", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to save playbook state for %s: %w", sessionID, err)
	}
	slog.Debug(s.name+".SavePlaybookState: saved", "session_id", sessionID, "playbook_id", state.PlaybookID, "stage", state.Stage)
	return nil
}

func (s *sqlBackend) GetPlaybookState(sessionID string) (*models.PlaybookState, error) {
	var playbookID sql.NullString
	var stage, ctxJSON string
	err := s.db.QueryRow(s.q(`SELECT playbook_id, stage, context FROM playbook_sessions WHERE session_id = ?`), sessionID).
		Scan(&playbookID, &stage, &ctxJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+".GetPlaybookState: query failed", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to load playbook state for %s: %w", sessionID, err)
	}
	state := models.PlaybookState{PlaybookID: playbookID.String, Stage: models.Stage(stage), Context: models.PlaybookContext{}}
	if ctxJSON != "" {
		if err := json.Unmarshal([]byte(ctxJSON), &state.Context); err != nil {
			return nil, fmt.Errorf("failed to decode playbook context for %s: %w", sessionID, err)
		}
	}
	return &state, nil
}

func (s *sqlBackend) DeletePlaybookState(sessionID string) error {
	if _, err := s.db.Exec(s.q(`DELETE FROM playbook_sessions WHERE session_id = ?`), sessionID); err != nil {
		slog.Error(s.name+".DeletePlaybookState: delete failed", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to delete playbook state for %s: %w", sessionID, err)
	}
	return nil
}

func (s *sqlBackend) AddFeedback(f models.Feedback) (models.Feedback, error) {
	stamp(&f.ID, &f.CreatedAt)
	_, err := s.db.Exec(s.q(`INSERT INTO feedback (id, user_id, rating, note, playbook_id, routine_id, action_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		f.ID, nilIfEmpty(f.UserID), f.Rating, nilIfEmpty(f.Note), nilIfEmpty(f.PlaybookID),
		nilIfEmpty(f.RoutineID), nilIfEmpty(f.ActionID), f.CreatedAt)
	if err != nil {
		slog.Error(s.name+".AddFeedback: insert failed", "id", f.ID, "error", err)
		return models.Feedback{}, fmt.Errorf("failed to insert feedback: %w", err)
	}
	return f, nil
}

func (s *sqlBackend) ListFeedback(userID string, limit int) ([]models.Feedback, error) {
	rows, err := s.db.Query(s.q(`SELECT id, user_id, rating, note, playbook_id, routine_id, action_id, created_at
		FROM feedback WHERE COALESCE(user_id, '') = ? ORDER BY created_at DESC LIMIT ?`), userID, normalizeLimit(limit))
	if err != nil {
		slog.Error(s.name+".ListFeedback: query failed", "error", err)
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	out := []models.Feedback{}
	for rows.Next() {
		var f models.Feedback
		var user, note, playbookID, routineID, actionID sql.NullString
		if err := rows.Scan(&f.ID, &user, &f.Rating, &note, &playbookID, &routineID, &actionID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback failed: %w", err)
		}
		f.UserID, f.Note = user.String, note.String
		f.PlaybookID, f.RoutineID, f.ActionID = playbookID.String, routineID.String, actionID.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *sqlBackend) AddMoodEntry(e models.MoodEntry) (models.MoodEntry, error) {
	stamp(&e.ID, &e.CreatedAt)
	_, err := s.db.Exec(s.q(`INSERT INTO mood_entries (id, user_id, mood, note, created_at) VALUES (?, ?, ?, ?, ?)`),
		e.ID, nilIfEmpty(e.UserID), string(e.Mood), nilIfEmpty(e.Note), e.CreatedAt)
	if err != nil {
		slog.Error(s.name+".AddMoodEntry: insert failed", "id", e.ID, "error", err)
		return models.MoodEntry{}, fmt.Errorf("failed to insert mood entry: %w", err)
	}
	slog.Debug(s.name+".AddMoodEntry: recorded", "id", e.ID, "mood", e.Mood)
	return e, nil
}

func (s *sqlBackend) ListMoodEntries(userID string, limit int) ([]models.MoodEntry, error) {
	rows, err := s.db.Query(s.q(`SELECT id, user_id, mood, note, created_at
		FROM mood_entries WHERE COALESCE(user_id, '') = ? ORDER BY created_at DESC LIMIT ?`), userID, normalizeLimit(limit))
	if err != nil {
		slog.Error(s.name+".ListMoodEntries: query failed", "error", err)
		return nil, fmt.Errorf("failed to list mood entries: %w", err)
	}
	defer rows.Close()

	out := []models.MoodEntry{}
	for rows.Next() {
		var e models.MoodEntry
		var user, note sql.NullString
		var mood string
		if err := rows.Scan(&e.ID, &user, &mood, &note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood entry failed: %w", err)
		}
		e.UserID, e.Mood, e.Note = user.String, models.MoodLevel(mood), note.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqlBackend) AddEvent(e models.Event) (models.Event, error) {
	stamp(&e.ID, &e.CreatedAt)
	var payload interface{}
	if len(e.Payload) > 0 {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return models.Event{}, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		payload = string(raw)
	}
	_, err := s.db.Exec(s.q(`INSERT INTO events (id, user_id, event_type, payload, created_at) VALUES (?, ?, ?, ?, ?)`),
		e.ID, nilIfEmpty(e.UserID), string(e.Type), payload, e.CreatedAt)
	if err != nil {
		slog.Error(s.name+".AddEvent: insert failed", "id", e.ID, "event_type", e.Type, "error", err)
		return models.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}
	return e, nil
}

func (s *sqlBackend) Close() error {
	slog.Debug(s.name + ".Close: closing database")
	return s.db.Close()
}

func (s *sqlBackend) FeedbackStats() (models.FeedbackStats, error) {
	rows, err := s.db.Query(`SELECT rating, COALESCE(routine_id, '') FROM feedback`)
	if err != nil {
		slog.Error(s.name+".FeedbackStats: query failed", "error", err)
		return models.FeedbackStats{}, fmt.Errorf("failed to load feedback ratings: %w", err)
	}
	defer rows.Close()

	var all []models.Feedback
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.Rating, &f.RoutineID); err != nil {
			return models.FeedbackStats{}, fmt.Errorf("scan feedback rating failed: %w", err)
		}
		all = append(all, f)
	}
	if err := rows.Err(); err != nil {
		return models.FeedbackStats{}, fmt.Errorf("failed to read feedback ratings: %w", err)
	}
	return models.NewFeedbackStats(all), nil
}

func (s *sqlBackend) GetPreferences(userID string) (*models.UserPreferences, error) {
	p := models.NewUserPreferences(userID)
	var vibe, coping, routineID, playbookID sql.NullString
	var routines string
	var rating sql.NullInt64
	var checkIn sql.NullTime
	err := s.db.QueryRow(s.q(`SELECT vibe, coping_style, routines, last_helpful_routine_id, last_helpful_playbook_id,
			last_feedback_rating, last_check_in_at, updated_at
		FROM user_preferences WHERE user_id = ?`), userID).
		Scan(&vibe, &coping, &routines, &routineID, &playbookID, &rating, &checkIn, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+".GetPreferences: query failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to load preferences for %s: %w", userID, err)
	}
	p.Vibe, p.CopingStyle = models.Vibe(vibe.String), models.CopingStyle(coping.String)
	p.LastHelpfulRoutineID, p.LastHelpfulPlaybookID = routineID.String, playbookID.String
	p.LastFeedbackRating = int(rating.Int64)
	if checkIn.Valid {
		p.LastCheckInAt = checkIn.Time
	}
	if routines != "" {
		if err := json.Unmarshal([]byte(routines), &p.Routines); err != nil {
			return nil, fmt.Errorf("failed to decode routines for %s: %w", userID, err)
		}
	}
	if p.Routines == nil {
		p.Routines = []string{}
	}
	return &p, nil
}

func (s *sqlBackend) SavePreferences(p models.UserPreferences) error {
	if p.UserID == "" {
		return ErrEmptyUserID
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	routines := p.Routines
	if routines == nil {
		routines = []string{}
	}
	raw, err := json.Marshal(routines)
	if err != nil {
		return fmt.Errorf("failed to marshal routines: %w", err)
	}
	var checkIn interface{}
	if !p.LastCheckInAt.IsZero() {
		checkIn = p.LastCheckInAt
	}
	var rating interface{}
	if p.LastFeedbackRating > 0 {
		rating = p.LastFeedbackRating
	}
	_, err = s.db.Exec(s.q(`INSERT INTO user_preferences (user_id, vibe, coping_style, routines, last_helpful_routine_id,
			last_helpful_playbook_id, last_feedback_rating, last_check_in_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			vibe = excluded.vibe,
			coping_style = excluded.coping_style,
			routines = excluded.routines,
			last_helpful_routine_id = excluded.last_helpful_routine_id,
			last_helpful_playbook_id = excluded.last_helpful_playbook_id,
			last_feedback_rating = excluded.last_feedback_rating,
			last_check_in_at = excluded.last_check_in_at,
			updated_at = excluded.updated_at`),
		p.UserID, nilIfEmpty(string(p.Vibe)), nilIfEmpty(string(p.CopingStyle)), string(raw),
		nilIfEmpty(p.LastHelpfulRoutineID), nilIfEmpty(p.LastHelpfulPlaybookID), rating, checkIn, p.UpdatedAt)
	if err != nil {
		slog.Error(s.name+".SavePreferences: upsert failed", "user_id", p.UserID, "error", err)
		return fmt.Errorf("failed to save preferences for %s: %w", p.UserID, err)
	}
	slog.Debug(s.name+".SavePreferences: saved", "user_id", p.UserID, "vibe", p.Vibe, "coping_style", p.CopingStyle)
	return nil
}

func (s *sqlBackend) GetMemory(userID string) (*models.UserMemory, error) {
	m := models.UserMemory{UserID: userID}
	var goal, checkin, state sql.NullString
	err := s.db.QueryRow(s.q(`SELECT last_goal, last_checkin, playbook_state, updated_at FROM user_memory WHERE user_id = ?`), userID).
		Scan(&goal, &checkin, &state, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+".GetMemory: query failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to load memory for %s: %w", userID, err)
	}
	m.LastGoal, m.LastCheckin = goal.String, checkin.String
	if state.Valid && state.String != "" {
		var st models.PlaybookState
		if err := json.Unmarshal([]byte(state.String), &st); err != nil {
			return nil, fmt.Errorf("failed to decode saved playbook state for %s: %w", userID, err)
		}
		m.PlaybookState = &st
	}
	return &m, nil
}

func (s *sqlBackend) SaveMemory(m models.UserMemory) error {
	if m.UserID == "" {
		return ErrEmptyUserID
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}
	var state interface{}
	if m.PlaybookState != nil {
		raw, err := json.Marshal(m.PlaybookState.Clone())
		if err != nil {
			return fmt.Errorf("failed to marshal playbook state: %w", err)
		}
		state = string(raw)
	}
	_, err := s.db.Exec(s.q(`INSERT INTO user_memory (user_id, last_goal, last_checkin, playbook_state, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			last_goal = excluded.last_goal,
			last_checkin = excluded.last_checkin,
			playbook_state = excluded.playbook_state,
			updated_at = excluded.updated_at`),
		m.UserID, nilIfEmpty(m.LastGoal), nilIfEmpty(m.LastCheckin), state, m.UpdatedAt)
	if err != nil {
		slog.Error(s.name+".SaveMemory: upsert failed", "user_id", m.UserID, "error", err)
		return fmt.Errorf("failed to save memory for %s: %w", m.UserID, err)
	}
	return nil
}

func (s *sqlBackend) DeleteProfile(userID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin profile delete: %w", err)
	}
	defer tx.Rollback()
	for _, table := range []string{"user_preferences", "user_memory"} {
		if _, err := tx.Exec(s.q(`DELETE FROM `+table+` WHERE user_id = ?`), userID); err != nil {
			slog.Error(s.name+".DeleteProfile: delete failed", "user_id", userID, "table", table, "error", err)
			return fmt.Errorf("failed to delete %s for %s: %w", table, userID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile delete for %s: %w", userID, err)
	}
	slog.Info(s.name+".DeleteProfile: profile cleared", "user_id", userID)
	return nil
}
