package session

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"line-chat-ai/internal/llm"
)

// MaxTurns caps a conversation at 20 user/assistant exchanges.
const MaxTurns = 40

const shardCount = 32

// UserID is the platform's opaque user identifier.
type UserID string

// Usage accumulates token counts per class. InputTokens excludes the
// cached part of the prompt.
type Usage struct {
	InputTokens       int64
	CachedInputTokens int64
	OutputTokens      int64
}

func (u Usage) Add(d Usage) Usage {
	return Usage{
		InputTokens:       u.InputTokens + nonNegative(d.InputTokens),
		CachedInputTokens: u.CachedInputTokens + nonNegative(d.CachedInputTokens),
		OutputTokens:      u.OutputTokens + nonNegative(d.OutputTokens),
	}
}

func (u Usage) Total() int64 { return u.InputTokens + u.CachedInputTokens + u.OutputTokens }

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

type Stats struct {
	Users               int
	EnabledUsers        int
	TotalTurns          int
	ActiveConversations int
}

// Store holds per-user conversation state. Every method touches only
// the given user's state.
type Store interface {
	History(user UserID) []llm.Message
	Append(user UserID, turns ...llm.Message)
	Clear(user UserID) int
	Enabled(user UserID) bool
	SetEnabled(user UserID, enabled bool)
	RecordUsage(user UserID, delta Usage)
	Usage(user UserID) Usage
	ResetUsage(user UserID)
	ActiveConversation(user UserID) (string, bool)
	SetActiveConversation(user UserID, id string)
	ActiveConversations() map[UserID]string
	Stats() Stats
	// Lock serializes whole requests of one user; the returned func unlocks.
	Lock(user UserID) func()
}

type userState struct {
	mu           sync.Mutex
	request      sync.Mutex
	history      []llm.Message
	enabled      bool
	usage        Usage
	conversation string
}

type shard struct {
	mu    sync.RWMutex
	users map[UserID]*userState
}

// MemoryStore keeps everything in process memory; state is lost on restart.
type MemoryStore struct {
	shards [shardCount]shard
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i].users = make(map[UserID]*userState)
	}
	return s
}

func (s *MemoryStore) shardFor(user UserID) *shard {
	return &s.shards[xxhash.Sum64String(string(user))%shardCount]
}

// lookup returns the user's state, or nil when the user was never seen.
func (s *MemoryStore) lookup(user UserID) *userState {
	sh := s.shardFor(user)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.users[user]
}

func (s *MemoryStore) state(user UserID) *userState {
	if st := s.lookup(user); st != nil {
		return st
	}
	sh := s.shardFor(user)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.users[user]
	if !ok {
		st = &userState{}
		sh.users[user] = st
	}
	return st
}

func (s *MemoryStore) History(user UserID) []llm.Message {
	st := s.lookup(user)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.history) == 0 {
		return nil
	}
	out := make([]llm.Message, len(st.history))
	copy(out, st.history)
	return out
}

// Append adds turns and then evicts from the front down to MaxTurns.
// Callers append whole user/assistant pairs so pairing survives eviction.
func (s *MemoryStore) Append(user UserID, turns ...llm.Message) {
	if len(turns) == 0 {
		return
	}
	st := s.state(user)
	st.mu.Lock()
	defer st.mu.Unlock()
	h := append(st.history, turns...)
	if len(h) > MaxTurns {
		trimmed := make([]llm.Message, MaxTurns)
		copy(trimmed, h[len(h)-MaxTurns:])
		h = trimmed
	}
	st.history = h
}

// Clear drops the history and returns the number of exchanges removed.
func (s *MemoryStore) Clear(user UserID) int {
	st := s.lookup(user)
	if st == nil {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	n := len(st.history) / 2
	st.history = nil
	return n
}

func (s *MemoryStore) Enabled(user UserID) bool {
	st := s.lookup(user)
	if st == nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.enabled
}

func (s *MemoryStore) SetEnabled(user UserID, enabled bool) {
	st := s.state(user)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.enabled = enabled
}

func (s *MemoryStore) RecordUsage(user UserID, delta Usage) {
	st := s.state(user)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.usage = st.usage.Add(delta)
}

func (s *MemoryStore) Usage(user UserID) Usage {
	st := s.lookup(user)
	if st == nil {
		return Usage{}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.usage
}

func (s *MemoryStore) ResetUsage(user UserID) {
	st := s.lookup(user)
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.usage = Usage{}
}

func (s *MemoryStore) ActiveConversation(user UserID) (string, bool) {
	st := s.lookup(user)
	if st == nil {
		return "", false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.conversation, st.conversation != ""
}

func (s *MemoryStore) SetActiveConversation(user UserID, id string) {
	st := s.state(user)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.conversation = id
}

func (s *MemoryStore) ActiveConversations() map[UserID]string {
	out := make(map[UserID]string)
	s.each(func(user UserID, st *userState) {
		if st.conversation != "" {
			out[user] = st.conversation
		}
	})
	return out
}

func (s *MemoryStore) Stats() Stats {
	var stats Stats
	s.each(func(_ UserID, st *userState) {
		stats.Users++
		if st.enabled {
			stats.EnabledUsers++
		}
		stats.TotalTurns += len(st.history)
		if st.conversation != "" {
			stats.ActiveConversations++
		}
	})
	return stats
}

func (s *MemoryStore) Lock(user UserID) func() {
	st := s.state(user)
	st.request.Lock()
	return st.request.Unlock
}

// each visits every user with that user's state mutex held.
func (s *MemoryStore) each(fn func(UserID, *userState)) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for user, st := range sh.users {
			st.mu.Lock()
			fn(user, st)
			st.mu.Unlock()
		}
		sh.mu.RUnlock()
	}
}
