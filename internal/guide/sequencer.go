package guide

import "sync"

// Sequencer guards a conversation against out-of-order replies. Every request takes a
// sequence number; only the reply to the newest request is accepted.
type Sequencer struct {
	mu     sync.Mutex
	latest uint64
}

// Observe records a client-assigned sequence number. It reports false for numbers that
// do not advance the conversation.
func (s *Sequencer) Observe(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.latest {
		return false
	}
	s.latest = seq
	return true
}

// Accept reports whether a reply to seq is still current.
func (s *Sequencer) Accept(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.latest
}

// Latest is the highest sequence number observed so far.
func (s *Sequencer) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}
