// Package companion implements freeform companion chat: per-session rolling history,
// a merged profile and memory, and a safety check ahead of every generation call.
package companion

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/Lantern/internal/genai"
	"github.com/BTreeMap/Lantern/internal/prompts"
	"github.com/BTreeMap/Lantern/internal/safety"
)

// History limits. MaxHistory messages are kept per session; the newest SentHistory
// of them accompany each request.
const (
	DefaultMaxHistory  = 20
	DefaultSentHistory = 10
)

// Profile is what the user has told the companion about themselves.
type Profile struct {
	PreferredName string   `json:"preferred_name,omitempty"`
	Vibe          string   `json:"vibe,omitempty"`
	Drink         string   `json:"drink,omitempty"`
	CopingStyle   string   `json:"coping_style,omitempty"`
	Routines      []string `json:"routines,omitempty"`
}

// merge overlays the non-empty fields of update onto p.
func (p Profile) merge(update Profile) Profile {
	if update.PreferredName != "" {
		p.PreferredName = update.PreferredName
	}
	if update.Vibe != "" {
		p.Vibe = update.Vibe
	}
	if update.Drink != "" {
		p.Drink = update.Drink
	}
	if update.CopingStyle != "" {
		p.CopingStyle = update.CopingStyle
	}
	if len(update.Routines) > 0 {
		p.Routines = append([]string(nil), update.Routines...)
	}
	return p
}

// Memory is short-lived context from recent conversations.
type Memory struct {
	LastGoal    string `json:"last_goal,omitempty"`
	LastTopic   string `json:"last_topic,omitempty"`
	LastCheckin string `json:"last_checkin,omitempty"`
}

func (m Memory) merge(update Memory) Memory {
	if update.LastGoal != "" {
		m.LastGoal = update.LastGoal
	}
	if update.LastCheckin != "" {
		m.LastCheckin = update.LastCheckin
	}
	if update.LastTopic != "" {
		m.LastTopic = update.LastTopic
	}
	return m
}

// Request is one chat turn. SessionID is optional; without it nothing is remembered.
type Request struct {
	SessionID string   `json:"session_id,omitempty"`
	Message   string   `json:"message"`
	Profile   *Profile `json:"profile,omitempty"`
	Memory    *Memory  `json:"memory,omitempty"`

	// AccountProfile and AccountMemory come from a signed-in user's saved profile.
	// Session values override them, and they are never copied into the session.
	AccountProfile Profile `json:"-"`
	AccountMemory  Memory  `json:"-"`
}

// Reply is the companion's answer.
type Reply struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Crisis    bool      `json:"crisis"`
	Fallback  bool      `json:"fallback,omitempty"`
	FollowUp  string    `json:"follow_up,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
}

// Responder answers chat turns. Safe for concurrent use.
type Responder struct {
	completer   genai.Completer
	basePrompt  string
	maxHistory  int
	sentHistory int
	now         func() time.Time
	sessions    *sessionStore
}

// Option configures a Responder.
type Option func(*Responder)

// WithSystemPrompt overrides the persona prompt.
func WithSystemPrompt(prompt string) Option {
	return func(r *Responder) {
		r.basePrompt = prompt
	}
}

// WithHistoryLimits sets how many messages are kept and how many are sent.
func WithHistoryLimits(keep, send int) Option {
	return func(r *Responder) {
		r.maxHistory = keep
		r.sentHistory = send
	}
}

// WithClock sets the time source used for timestamps and idle eviction.
func WithClock(now func() time.Time) Option {
	return func(r *Responder) {
		r.now = now
	}
}

// NewResponder creates a responder. A nil completer disables generation, so every
// non-crisis turn gets the fallback message.
func NewResponder(completer genai.Completer, opts ...Option) *Responder {
	r := &Responder{
		completer:   completer,
		maxHistory:  DefaultMaxHistory,
		sentHistory: DefaultSentHistory,
		now:         time.Now,
		sessions:    newSessionStore(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.completer == nil {
		r.completer = genai.Disabled{}
	}
	if r.basePrompt == "" {
		r.basePrompt = prompts.Companion()
	}
	if r.maxHistory <= 0 {
		r.maxHistory = DefaultMaxHistory
	}
	if r.sentHistory <= 0 || r.sentHistory > r.maxHistory {
		r.sentHistory = r.maxHistory
	}
	return r
}

// Respond answers one message. Crisis messages get the crisis response without a
// generation call and leave the session untouched. Generation failures return the
// fallback message; session state is written only after a successful reply.
func (r *Responder) Respond(ctx context.Context, req Request) Reply {
	var history []genai.Message
	var stored Profile
	var storedMemory Memory
	if req.SessionID != "" {
		history, stored, storedMemory = r.sessions.snapshot(req.SessionID)
	}
	var profileUpdate Profile
	if req.Profile != nil {
		profileUpdate = *req.Profile
	}
	var memoryUpdate Memory
	if req.Memory != nil {
		memoryUpdate = *req.Memory
	}
	profile := req.AccountProfile.merge(stored).merge(profileUpdate)
	memory := req.AccountMemory.merge(storedMemory).merge(memoryUpdate)

	if safety.Detect(req.Message) {
		slog.Info("Responder.Respond: crisis detected", "sessionID", req.SessionID)
		return Reply{
			Message:   safety.CrisisMessage(profile.PreferredName),
			Timestamp: r.now().UTC(),
			Crisis:    true,
			FollowUp:  safety.FollowUpQuestion(),
		}
	}

	if len(history) > r.sentHistory {
		history = history[len(history)-r.sentHistory:]
	}
	text, err := r.completer.Complete(ctx, genai.Request{
		SystemPrompt: BuildSystemPrompt(r.basePrompt, profile, memory),
		Message:      req.Message,
		History:      history,
	})
	if err != nil {
		slog.Warn("Responder.Respond: generation failed, using fallback", "sessionID", req.SessionID, "kind", genai.KindOf(err), "error", err)
		return Reply{Message: safety.FallbackMessage(), Timestamp: r.now().UTC(), Fallback: true}
	}
	if ctx.Err() != nil {
		slog.Debug("Responder.Respond: request canceled, not saving turn", "sessionID", req.SessionID)
		return Reply{Message: text, Timestamp: r.now().UTC()}
	}

	if req.SessionID != "" {
		r.sessions.commit(req.SessionID, profileUpdate, memoryUpdate, []genai.Message{
			{Role: genai.RoleUser, Content: req.Message},
			{Role: genai.RoleAssistant, Content: text},
		}, r.maxHistory, r.now())
	}
	return Reply{Message: text, Timestamp: r.now().UTC()}
}

// BuildSystemPrompt appends a private user-context block to base when profile or
// memory has anything to say.
func BuildSystemPrompt(base string, profile Profile, memory Memory) string {
	var lines []string
	add := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			lines = append(lines, "- "+label+": "+v)
		}
	}
	add("Preferred name", profile.PreferredName)
	add("Tone preference", profile.Vibe)
	add("Handshake drink", profile.Drink)
	add("Coping style", profile.CopingStyle)
	add("Routines that help", strings.Join(profile.Routines, ", "))
	add("Recent goal", memory.LastGoal)
	add("Recent topic", memory.LastTopic)
	add("Last check-in", memory.LastCheckin)
	if len(lines) == 0 {
		return base
	}
	return base + "\n\nUSER CONTEXT (private, factual):\n" + strings.Join(lines, "\n") +
		"\n\nUse this context naturally. Do not list it back to the user. Weave it in with warmth."
}

// History returns a copy of the stored messages for a session.
func (r *Responder) History(sessionID string) []genai.Message {
	history, _, _ := r.sessions.snapshot(sessionID)
	return history
}

// ClearSession forgets a session's history, profile and memory. It reports whether
// anything was stored.
func (r *Responder) ClearSession(sessionID string) bool {
	return r.sessions.delete(sessionID)
}

// EvictIdle removes sessions untouched for longer than maxIdle.
func (r *Responder) EvictIdle(maxIdle time.Duration) int {
	removed := r.sessions.evictBefore(r.now().Add(-maxIdle))
	if removed > 0 {
		slog.Debug("Responder.EvictIdle: evicted idle sessions", "count", removed, "maxIdle", maxIdle)
	}
	return removed
}

// SessionCount reports how many sessions are held.
func (r *Responder) SessionCount() int {
	return r.sessions.len()
}

// QuickExercise returns the breathing, grounding or mindfulness guide.
func (r *Responder) QuickExercise(kind string) string {
	return QuickExercise(kind)
}
