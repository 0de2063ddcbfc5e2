package validation

import (
	"strings"
	"sync"
)

// Sequencer hands out monotonically increasing tags per field key. An async
// completion may only be applied while its tag is still current.
type Sequencer struct {
	mu   sync.Mutex
	tags map[string]uint64
}

// NewSequencer returns an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{tags: make(map[string]uint64)}
}

// Next issues a fresh tag for key, invalidating earlier ones.
func (s *Sequencer) Next(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[key]++
	return s.tags[key]
}

// Current reports whether tag is the latest issued for key.
func (s *Sequencer) Current(key string, tag uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tag != 0 && s.tags[key] == tag
}

// Supersede invalidates any outstanding tag for key.
func (s *Sequencer) Supersede(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tags[key]; ok {
		s.tags[key]++
	}
}

// SupersedePrefix invalidates every key equal to prefix or nested under it
// (prefix followed by a dot).
func (s *Sequencer) SupersedePrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.tags {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			s.tags[key]++
		}
	}
}

// SupersedeAll invalidates every outstanding tag.
func (s *Sequencer) SupersedeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.tags {
		s.tags[key]++
	}
}
