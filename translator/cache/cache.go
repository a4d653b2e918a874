// Package cache implements the bounded translation memo shared by all requests.
package cache

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ownlingo/transmux/translator"
)

const (
	// DefaultCapacity is the number of entries kept before eviction
	DefaultCapacity = 100

	// KeyTextPrefix is how many runes of the text participate in a key
	KeyTextPrefix = 100
)

// Entry is a cached translation
type Entry struct {
	TranslatedText string
	SourceLanguage string // Effective languages the text was translated with
	TargetLanguage string
	CachedAt       time.Time
}

// Store is a bounded key to Entry map evicting the oldest inserted entry.
// Reads never change eviction order.
type Store struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]Entry
	order    []string // insertion order, oldest first
}

// New creates a store holding at most capacity entries
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Store{
		capacity: capacity,
		entries:  make(map[string]Entry, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Get returns the entry stored under key
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return e, ok
}

// Put stores entry under key. Replacing an existing key keeps its position;
// inserting past capacity first evicts the single oldest entry.
func (s *Store) Put(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		s.entries[key] = entry
		return
	}

	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}

	s.entries[key] = entry
	s.order = append(s.order, key)
}

// Len returns the number of cached entries
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops every entry
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry, s.capacity)
	s.order = make([]string, 0, s.capacity)
}

// BuildKey derives the cache key of a translation. Only the first
// KeyTextPrefix runes of text participate, so texts sharing that prefix
// share a key.
func BuildKey(provider, source, target string, mode translator.Mode, text string) string {
	var b strings.Builder
	b.WriteString(provider)
	b.WriteByte('|')
	b.WriteString(source)
	b.WriteByte('|')
	b.WriteString(target)
	b.WriteByte('|')
	b.WriteString(string(mode))
	b.WriteByte('|')
	b.WriteString(prefix(text, KeyTextPrefix))
	return b.String()
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
