package models

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Vibe is the conversational tone a user prefers.
type Vibe string

const (
	VibeJokester Vibe = "jokester"
	VibeCozy     Vibe = "cozy"
	VibeBalanced Vibe = "balanced"
)

// CopingStyle is how a user prefers to work through a hard moment.
type CopingStyle string

const (
	CopingTalking   CopingStyle = "talking"
	CopingPlanning  CopingStyle = "planning"
	CopingGrounding CopingStyle = "grounding"
)

// Profile limits.
const (
	MaxRoutines      = 20
	MaxRoutineLength = 100
	MaxGoalLength    = 500
	// HelpfulRating is the lowest feedback rating that marks a routine as helpful.
	HelpfulRating = 4
)

// RepeatSuggestion is offered when the routine that helped last time fits again.
const RepeatSuggestion = "This helped you last time. Want to try it again?"

var (
	ErrInvalidVibe        = errors.New("vibe must be one of jokester, cozy, balanced")
	ErrInvalidCopingStyle = errors.New("coping_style must be one of talking, planning, grounding")
	ErrTooManyRoutines    = errors.New("too many routines")
	ErrRoutineTooLong     = errors.New("routine exceeds maximum length")
	ErrGoalTooLong        = errors.New("last_goal exceeds maximum length")
)

// IsValidVibe checks if the given vibe is supported.
func IsValidVibe(v Vibe) bool {
	switch v {
	case VibeJokester, VibeCozy, VibeBalanced:
		return true
	default:
		return false
	}
}

// IsValidCopingStyle checks if the given coping style is supported.
func IsValidCopingStyle(c CopingStyle) bool {
	switch c {
	case CopingTalking, CopingPlanning, CopingGrounding:
		return true
	default:
		return false
	}
}

// UserPreferences are a signed-in user's saved settings plus what last helped them.
type UserPreferences struct {
	UserID                string      `json:"user_id"`
	Vibe                  Vibe        `json:"vibe,omitempty"`
	CopingStyle           CopingStyle `json:"coping_style,omitempty"`
	Routines              []string    `json:"routines"`
	LastHelpfulRoutineID  string      `json:"last_helpful_routine_id,omitempty"`
	LastHelpfulPlaybookID string      `json:"last_helpful_playbook_id,omitempty"`
	LastFeedbackRating    int         `json:"last_feedback_rating,omitempty"`
	LastCheckInAt         time.Time   `json:"last_check_in_at,omitzero"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// NewUserPreferences returns empty preferences for userID.
func NewUserPreferences(userID string) UserPreferences {
	return UserPreferences{UserID: userID, Routines: []string{}}
}

// Clone returns a copy that shares no slices with p.
func (p UserPreferences) Clone() UserPreferences {
	p.Routines = append([]string{}, p.Routines...)
	return p
}

// RecordHelpful notes the routine and playbook behind a helpful rating. It reports
// false and leaves p unchanged when the rating is below HelpfulRating or there is
// nothing to remember.
func (p UserPreferences) RecordHelpful(routineID, playbookID string, rating int, now time.Time) (UserPreferences, bool) {
	if rating < HelpfulRating || (routineID == "" && playbookID == "") {
		return p, false
	}
	p = p.Clone()
	p.LastHelpfulRoutineID = routineID
	p.LastHelpfulPlaybookID = playbookID
	p.LastFeedbackRating = rating
	p.LastCheckInAt = now.UTC()
	p.UpdatedAt = now.UTC()
	return p, true
}

// PersonalizationContext is what a playbook turn can borrow from saved preferences.
type PersonalizationContext struct {
	CopingStyle        CopingStyle `json:"coping_style,omitempty"`
	SuggestedRoutineID string      `json:"suggested_routine_id,omitempty"`
	RepeatSuggestion   string      `json:"repeat_suggestion,omitempty"`
}

// Personalization returns the context for playbookID. A routine is suggested again
// only when it was rated helpful during the same playbook.
func (p UserPreferences) Personalization(playbookID string) PersonalizationContext {
	ctx := PersonalizationContext{CopingStyle: p.CopingStyle}
	if playbookID != "" && p.LastHelpfulPlaybookID == playbookID &&
		p.LastHelpfulRoutineID != "" && p.LastFeedbackRating >= HelpfulRating {
		ctx.SuggestedRoutineID = p.LastHelpfulRoutineID
		ctx.RepeatSuggestion = RepeatSuggestion
	}
	return ctx
}

// UserMemory is short-term context a signed-in user has chosen to keep.
type UserMemory struct {
	UserID        string         `json:"user_id"`
	LastGoal      string         `json:"last_goal,omitempty"`
	LastCheckin   string         `json:"last_checkin,omitempty"`
	PlaybookState *PlaybookState `json:"playbook_state,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Clone returns a copy that shares no state with m.
func (m UserMemory) Clone() UserMemory {
	if m.PlaybookState != nil {
		st := m.PlaybookState.Clone()
		m.PlaybookState = &st
	}
	return m
}

// UserProfile combines preferences and memory. Either may be nil when nothing is saved.
type UserProfile struct {
	Preferences *UserPreferences `json:"preferences"`
	Memory      *UserMemory      `json:"memory"`
}

// PreferencesUpdate is a partial update. Absent fields keep their saved values.
type PreferencesUpdate struct {
	Vibe        *Vibe        `json:"vibe,omitempty"`
	CopingStyle *CopingStyle `json:"coping_style,omitempty"`
	Routines    []string     `json:"routines,omitempty"`
}

// Validate validates a PreferencesUpdate.
func (u *PreferencesUpdate) Validate() error {
	if u.Vibe != nil && !IsValidVibe(*u.Vibe) {
		return ErrInvalidVibe
	}
	if u.CopingStyle != nil && !IsValidCopingStyle(*u.CopingStyle) {
		return ErrInvalidCopingStyle
	}
	if len(u.Routines) > MaxRoutines {
		return ErrTooManyRoutines
	}
	for _, r := range u.Routines {
		if len(r) > MaxRoutineLength {
			return ErrRoutineTooLong
		}
	}
	return nil
}

// Apply overlays the provided fields onto p. Blank routines are dropped.
func (u PreferencesUpdate) Apply(p UserPreferences, now time.Time) UserPreferences {
	p = p.Clone()
	if u.Vibe != nil {
		p.Vibe = *u.Vibe
	}
	if u.CopingStyle != nil {
		p.CopingStyle = *u.CopingStyle
	}
	if u.Routines != nil {
		p.Routines = slices.DeleteFunc(append([]string{}, u.Routines...), func(r string) bool {
			return strings.TrimSpace(r) == ""
		})
	}
	p.UpdatedAt = now.UTC()
	return p
}

// MemoryUpdate is a partial update. Absent fields keep their saved values.
type MemoryUpdate struct {
	LastGoal      *string        `json:"last_goal,omitempty"`
	LastCheckin   *string        `json:"last_checkin,omitempty"`
	PlaybookState *PlaybookState `json:"playbook_state,omitempty"`
}

// Validate validates a MemoryUpdate.
func (u *MemoryUpdate) Validate() error {
	if u.LastGoal != nil && len(*u.LastGoal) > MaxGoalLength {
		return ErrGoalTooLong
	}
	if u.LastCheckin != nil && len(*u.LastCheckin) > MaxNoteLength {
		return ErrNoteTooLong
	}
	if u.PlaybookState != nil {
		return u.PlaybookState.Validate()
	}
	return nil
}

// Apply overlays the provided fields onto m.
func (u MemoryUpdate) Apply(m UserMemory, now time.Time) UserMemory {
	m = m.Clone()
	if u.LastGoal != nil {
		m.LastGoal = *u.LastGoal
	}
	if u.LastCheckin != nil {
		m.LastCheckin = *u.LastCheckin
	}
	if u.PlaybookState != nil {
		st := u.PlaybookState.Clone()
		m.PlaybookState = &st
	}
	m.UpdatedAt = now.UTC()
	return m
}

// ProfileUpdate updates preferences, memory or both.
type ProfileUpdate struct {
	Preferences *PreferencesUpdate `json:"preferences,omitempty"`
	Memory      *MemoryUpdate      `json:"memory,omitempty"`
}

// Validate validates a ProfileUpdate.
func (u *ProfileUpdate) Validate() error {
	if u.Preferences != nil {
		if err := u.Preferences.Validate(); err != nil {
			return err
		}
	}
	if u.Memory != nil {
		return u.Memory.Validate()
	}
	return nil
}

// RoutineStat summarizes ratings for one routine.
type RoutineStat struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// FeedbackStats summarizes every rating on record.
type FeedbackStats struct {
	AverageRating *float64               `json:"average_rating"`
	Count         int                    `json:"count"`
	Distribution  map[int]int            `json:"distribution"`
	RoutineStats  map[string]RoutineStat `json:"routine_stats"`
}

// NewFeedbackStats aggregates feedback. The distribution always has keys 1 through 5.
func NewFeedbackStats(feedback []Feedback) FeedbackStats {
	stats := FeedbackStats{
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		RoutineStats: map[string]RoutineStat{},
	}
	if len(feedback) == 0 {
		return stats
	}
	sum := 0
	routineSums := map[string]int{}
	for _, f := range feedback {
		sum += f.Rating
		stats.Distribution[f.Rating]++
		if f.RoutineID == "" {
			continue
		}
		rs := stats.RoutineStats[f.RoutineID]
		rs.Count++
		stats.RoutineStats[f.RoutineID] = rs
		routineSums[f.RoutineID] += f.Rating
	}
	for id, rs := range stats.RoutineStats {
		rs.Average = float64(routineSums[id]) / float64(rs.Count)
		stats.RoutineStats[id] = rs
	}
	avg := float64(sum) / float64(len(feedback))
	stats.AverageRating = &avg
	stats.Count = len(feedback)
	return stats
}
