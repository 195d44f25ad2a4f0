package convo

import (
	"sync"

	"pharmacy-portal/pkg"
)

// Store is the per-conversation state capability injected into the dialogue
// controller. Version 0 means the key does not exist yet. Implementations
// must make CompareAndSwap atomic with respect to Get so two concurrent
// turns for the same key cannot both act on the same observed state.
type Store interface {
	// Get returns a copy of the state and its current version.
	Get(key string) (pkg.ConversationState, uint64)
	// Put unconditionally replaces the state and returns the new version.
	Put(key string, st pkg.ConversationState) uint64
	// CompareAndSwap replaces the state only if the stored version still
	// equals version. Passing version 0 creates the key if absent.
	CompareAndSwap(key string, version uint64, st pkg.ConversationState) bool
	// Delete removes the key entirely; the next Get sees a fresh state.
	Delete(key string)
}

// MemoryStore keeps conversation state in process memory. Conversation
// persistence is out of scope for the core, so this is the only shipped
// implementation; tests and future backends plug in through Store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*entry
}

type entry struct {
	state   pkg.ConversationState
	version uint64
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*entry)}
}

func (s *MemoryStore) Get(key string) (pkg.ConversationState, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return pkg.ConversationState{}, 0
	}
	return cloneState(e.state), e.version
}

func (s *MemoryStore) Put(key string, st pkg.ConversationState) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		e = &entry{}
		s.data[key] = e
	}
	e.state = cloneState(st)
	e.version++
	return e.version
}

func (s *MemoryStore) CompareAndSwap(key string, version uint64, st pkg.ConversationState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		if version != 0 {
			return false
		}
		s.data[key] = &entry{state: cloneState(st), version: 1}
		return true
	}
	if e.version != version {
		return false
	}
	e.state = cloneState(st)
	e.version++
	return true
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// cloneState copies the turn slice so callers never alias stored state.
func cloneState(st pkg.ConversationState) pkg.ConversationState {
	out := st
	out.Turns = make([]pkg.ConversationTurn, len(st.Turns))
	copy(out.Turns, st.Turns)
	return out
}
