package state

import "sync"

// Store keeps conversations in memory. Access to a single key is
// serialized through Acquire so an update never observes a conversation
// mid-transition.
type Store struct {
	mu            sync.Mutex
	conversations map[Key]*Conversation
	locks         map[Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore constructs an empty conversation store.
func NewStore() *Store {
	return &Store{
		conversations: make(map[Key]*Conversation),
		locks:         make(map[Key]*keyLock),
	}
}

// Acquire locks the given key and returns a release function. Updates for
// the same (chat, user) are processed one at a time; distinct keys do not
// block each other.
func (s *Store) Acquire(key Key) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// Get returns the active conversation for the key, if any.
func (s *Store) Get(key Key) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[key]
	return c, ok
}

// Begin starts a conversation for the key, replacing any previous one.
func (s *Store) Begin(key Key, flow string, st ID) *Conversation {
	c := NewConversation(flow, st)
	s.mu.Lock()
	s.conversations[key] = c
	s.mu.Unlock()
	return c
}

// Put stores an already built conversation under the key.
func (s *Store) Put(key Key, c *Conversation) {
	if c == nil {
		return
	}
	s.mu.Lock()
	s.conversations[key] = c
	s.mu.Unlock()
}

// End removes the conversation for the key. Ending a key without an active
// conversation is a no-op.
func (s *Store) End(key Key) {
	s.mu.Lock()
	delete(s.conversations, key)
	s.mu.Unlock()
}

// InProgress reports whether the key has an active conversation.
func (s *Store) InProgress(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conversations[key]
	return ok
}

// ActiveCount returns the number of active conversations.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}
