package api

import (
	"net/http"
	"strings"

	"github.com/BTreeMap/Lantern/internal/util"
)

// DefaultChatSession is the conversation a signed-in user continues when no session id is given.
const DefaultChatSession = "default"

// sessionKey returns the storage key for a client-visible session id. Signed-in
// callers get their own namespace, so knowing another user's id or session id
// is not enough to reach their session. Anonymous ids share one namespace.
func sessionKey(uid, id string) string {
	if uid != "" {
		return "user:" + uid + ":" + id
	}
	return "anon:" + id
}

// chatSessionID picks the client-visible chat session id for r. Anonymous
// callers without one get a fresh unguessable id.
func chatSessionID(r *http.Request, requested string) string {
	if id := strings.TrimSpace(requested); id != "" {
		return id
	}
	if userID(r) != "" {
		return DefaultChatSession
	}
	return util.GenerateSessionID()
}

// scopedSessionID is sessionKey for the caller of r.
func scopedSessionID(r *http.Request, id string) string {
	return sessionKey(userID(r), id)
}
