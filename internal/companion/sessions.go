package companion

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/BTreeMap/Lantern/internal/genai"
)

const shardCount = 32

// session is the per-id chat state. Guarded by its shard's mutex.
type session struct {
	history  []genai.Message
	profile  Profile
	memory   Memory
	lastUsed time.Time
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// sessionStore is a sharded map of sessions. Different ids rarely contend.
type sessionStore struct {
	shards [shardCount]shard
}

func newSessionStore() *sessionStore {
	s := &sessionStore{}
	for i := range s.shards {
		s.shards[i].sessions = make(map[string]*session)
	}
	return s
}

func (s *sessionStore) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.shards[h.Sum32()%shardCount]
}

// snapshot returns copies of the stored history, profile and memory for id.
func (s *sessionStore) snapshot(id string) ([]genai.Message, Profile, Memory) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[id]
	if !ok {
		return nil, Profile{}, Memory{}
	}
	return append([]genai.Message(nil), sess.history...), sess.profile, sess.memory
}

// commit stores the merged profile and memory and appends one exchange, keeping at
// most maxHistory messages.
func (s *sessionStore) commit(id string, profile Profile, memory Memory, exchange []genai.Message, maxHistory int, now time.Time) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[id]
	if !ok {
		sess = &session{}
		sh.sessions[id] = sess
	}
	sess.profile = sess.profile.merge(profile)
	sess.memory = sess.memory.merge(memory)
	sess.history = append(sess.history, exchange...)
	if over := len(sess.history) - maxHistory; over > 0 {
		sess.history = append([]genai.Message(nil), sess.history[over:]...)
	}
	sess.lastUsed = now
}

func (s *sessionStore) delete(id string) bool {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.sessions[id]
	delete(sh.sessions, id)
	return ok
}

// evictBefore removes sessions last used before cutoff and returns how many were removed.
func (s *sessionStore) evictBefore(cutoff time.Time) int {
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if sess.lastUsed.Before(cutoff) {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func (s *sessionStore) len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}
