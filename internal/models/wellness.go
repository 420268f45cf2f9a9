package models

import (
	"errors"
	"strings"
	"time"
)

// MoodLevel is a self-reported mood.
type MoodLevel string

const (
	MoodGreat      MoodLevel = "great"
	MoodGood       MoodLevel = "good"
	MoodOkay       MoodLevel = "okay"
	MoodLow        MoodLevel = "low"
	MoodStruggling MoodLevel = "struggling"
)

// MoodLevels lists every mood in display order.
var MoodLevels = []MoodLevel{MoodGreat, MoodGood, MoodOkay, MoodLow, MoodStruggling}

// IsValidMoodLevel checks if the given mood is supported.
func IsValidMoodLevel(m MoodLevel) bool {
	switch m {
	case MoodGreat, MoodGood, MoodOkay, MoodLow, MoodStruggling:
		return true
	default:
		return false
	}
}

// EventType names an application event.
type EventType string

const (
	EventRoutineUsed       EventType = "routine_used"
	EventRoutineRepeated   EventType = "routine_repeated"
	EventPlaybookCompleted EventType = "playbook_completed"
	EventResourceOpened    EventType = "resource_opened"
	EventScriptCopied      EventType = "script_copied"
)

// Error variables for better error handling and testability
var (
	ErrInvalidMood     = errors.New("invalid mood level")
	ErrNoteTooLong     = errors.New("note exceeds maximum length")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrEmptyEventType  = errors.New("event_type is required")
	ErrEmptyMessage    = errors.New("message is required")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrInvalidUserID   = errors.New("user id is required")
	ErrInvalidLocation = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")
)

// MoodEntry is one mood check-in.
type MoodEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Mood      MoodLevel `json:"mood"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Feedback is a rating left after a routine or playbook.
type Feedback struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Rating     int       `json:"rating"`
	Note       string    `json:"note,omitempty"`
	PlaybookID string    `json:"playbook_id,omitempty"`
	RoutineID  string    `json:"routine_id,omitempty"`
	ActionID   string    `json:"action_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event is an application usage event.
type Event struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id,omitempty"`
	Type      EventType         `json:"event_type"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// MoodEntryRequest represents the payload for recording a mood.
type MoodEntryRequest struct {
	Mood MoodLevel `json:"mood" validate:"required"`
	Note string    `json:"note,omitempty"`
}

// Validate validates a MoodEntryRequest.
func (r *MoodEntryRequest) Validate() error {
	if !IsValidMoodLevel(r.Mood) {
		return ErrInvalidMood
	}
	if len(r.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// FeedbackRequest represents the payload for submitting feedback.
type FeedbackRequest struct {
	Rating     int    `json:"rating" validate:"required"`
	Note       string `json:"note,omitempty"`
	PlaybookID string `json:"playbook_id,omitempty"`
	RoutineID  string `json:"routine_id,omitempty"`
	ActionID   string `json:"action_id,omitempty"`
}

// Validate validates a FeedbackRequest.
func (r *FeedbackRequest) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	if len(r.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// EventRequest represents the payload for logging an event.
type EventRequest struct {
	Type    EventType         `json:"event_type" validate:"required"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Validate validates an EventRequest.
func (r *EventRequest) Validate() error {
	if strings.TrimSpace(string(r.Type)) == "" {
		return ErrEmptyEventType
	}
	return nil
}

// MoodStats counts entries per mood. Every level is present, zero if unused.
type MoodStats map[MoodLevel]int

// NewMoodStats tallies entries.
func NewMoodStats(entries []MoodEntry) MoodStats {
	stats := make(MoodStats, len(MoodLevels))
	for _, m := range MoodLevels {
		stats[m] = 0
	}
	for _, e := range entries {
		stats[e.Mood]++
	}
	return stats
}

// ValidateMessage checks a free-text chat or playbook message.
func ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	if len(message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
