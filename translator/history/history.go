// Package history keeps an in-memory, capped log of completed translations.
package history

import (
	"sync"
	"time"

	"github.com/ownlingo/transmux/translator"
)

// DefaultCapacity is the number of entries kept
const DefaultCapacity = 100

// Entry is one completed translation
type Entry struct {
	SourceText     string          `json:"sourceText"`
	TranslatedText string          `json:"translatedText"`
	SourceLanguage string          `json:"sourceLanguage"`
	TargetLanguage string          `json:"targetLanguage"`
	Provider       string          `json:"provider"`
	Mode           translator.Mode `json:"mode"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Log is an append-only list capped at a fixed size; the oldest entries
// fall off first
type Log struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

// New creates a log holding at most capacity entries
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity}
}

// Append records e
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = append([]Entry(nil), l.entries[over:]...)
	}
}

// Entries returns a copy of the log, newest first
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Len returns the number of entries
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops every entry
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
