package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/BTreeMap/Lantern/internal/auth"
	"github.com/BTreeMap/Lantern/internal/companion"
	"github.com/BTreeMap/Lantern/internal/models"
	"github.com/BTreeMap/Lantern/internal/testutil"
)

func TestSessionKey(t *testing.T) {
	tests := []struct {
		name string
		uid  string
		id   string
		want string
	}{
		{"signed in", "u1", "default", "user:u1:default"},
		{"anonymous", "", "s_abc", "anon:s_abc"},
		{"user id as anonymous session", "", "u1", "anon:u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sessionKey(tt.uid, tt.id); got != tt.want {
				t.Errorf("sessionKey(%q, %q) = %q, want %q", tt.uid, tt.id, got, tt.want)
			}
		})
	}
}

func TestChatAnonymousGetsGeneratedSession(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hello"}, "")
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "first chat")
	var first companion.Reply
	testutil.DecodeResult(t, rr, &first)
	if !strings.HasPrefix(first.SessionID, "s_") || len(first.SessionID) != 34 {
		t.Fatalf("expected a generated session id, got %q", first.SessionID)
	}

	rr = env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "still here", "session_id": first.SessionID}, "")
	var second companion.Reply
	testutil.DecodeResult(t, rr, &second)
	if second.SessionID != first.SessionID {
		t.Errorf("expected the session to continue, got %q", second.SessionID)
	}
	if got := len(env.server.responder.History(sessionKey("", first.SessionID))); got != 4 {
		t.Errorf("expected two exchanges in the session, got %d messages", got)
	}

	rr = env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "new visitor"}, "")
	var other companion.Reply
	testutil.DecodeResult(t, rr, &other)
	if other.SessionID == first.SessionID {
		t.Errorf("each anonymous conversation must get its own session")
	}
}

func TestChatSessionsAreScopedToCaller(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.token(t, "jdoe")
	intruder := env.token(t, "mallory")
	ownerKey := sessionKey(auth.UserIDFor("jdoe"), DefaultChatSession)

	env.do(t, http.MethodPost, "/api/chat", map[string]interface{}{
		"message": "my exam is tomorrow",
		"profile": map[string]string{"preferred_name": "Quillon"},
	}, owner)
	if len(env.server.responder.History(ownerKey)) != 2 {
		t.Fatalf("expected the owner's session to be stored")
	}

	env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "what did they say?", "session_id": DefaultChatSession}, intruder)
	if strings.Contains(env.completer.Last().SystemPrompt, "Quillon") {
		t.Errorf("another user's profile leaked into the prompt")
	}
	if got := len(env.completer.Last().History); got != 0 {
		t.Errorf("another user's history leaked into the request, got %d messages", got)
	}

	env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "hi", "session_id": auth.UserIDFor("jdoe")}, "")
	if strings.Contains(env.completer.Last().SystemPrompt, "Quillon") {
		t.Errorf("anonymous caller reached a signed-in session by user id")
	}

	for _, tok := range []string{intruder, ""} {
		rr := env.do(t, http.MethodDelete, "/api/chat/sessions/"+DefaultChatSession, nil, tok)
		var cleared map[string]bool
		testutil.DecodeResult(t, rr, &cleared)
		if cleared["cleared"] {
			t.Errorf("caller %q cleared a session it does not own", tok)
		}
	}
	if len(env.server.responder.History(ownerKey)) != 2 {
		t.Errorf("owner's session must survive other callers")
	}

	rr := env.do(t, http.MethodDelete, "/api/chat/sessions/"+DefaultChatSession, nil, owner)
	var cleared map[string]bool
	testutil.DecodeResult(t, rr, &cleared)
	if !cleared["cleared"] {
		t.Errorf("owner should be able to clear their session")
	}
}

func TestPlaybookSessionsAreScopedToCaller(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.token(t, "jdoe")
	ownerKey := sessionKey(auth.UserIDFor("jdoe"), "plan")

	env.do(t, http.MethodPost, "/api/playbooks/run", map[string]string{
		"message":    "I'm so stressed about my exam and the deadline",
		"session_id": "plan",
	}, owner)
	if st, _ := env.store.GetPlaybookState(ownerKey); st == nil || st.Stage != models.StageTriage {
		t.Fatalf("expected the owner's triage state, got %+v", st)
	}

	rr := env.do(t, http.MethodPost, "/api/playbooks/run", map[string]string{
		"message":    "mostly the exam",
		"session_id": "plan",
	}, "")
	var got runResult
	testutil.DecodeResult(t, rr, &got)
	if got.Stage == models.StageTriage {
		t.Errorf("anonymous caller continued the owner's session")
	}

	rr = env.do(t, http.MethodDelete, "/api/playbooks/sessions/plan", nil, env.token(t, "mallory"))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "other user reset")
	if st, _ := env.store.GetPlaybookState(ownerKey); st == nil {
		t.Errorf("another user's reset removed the owner's session")
	}

	env.do(t, http.MethodDelete, "/api/playbooks/sessions/plan", nil, owner)
	if st, _ := env.store.GetPlaybookState(ownerKey); st != nil {
		t.Errorf("expected the owner's reset to remove the session, got %+v", st)
	}
}
