package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ownlingo/transmux/translator"
)

// sharedState coordinates the workers of one request. It is never shared
// between requests.
type sharedState struct {
	threshold int

	languagePair        atomic.Bool
	consecutiveFailures atomic.Int32

	mu  sync.Mutex
	err error // most specific failure seen so far
}

func newSharedState(threshold int) *sharedState {
	if threshold <= 0 {
		threshold = translator.DefaultFailureThreshold
	}
	return &sharedState{threshold: threshold}
}

// standDown reports whether a worker should stop claiming batches
func (s *sharedState) standDown(ctx context.Context) bool {
	return ctx.Err() != nil || s.languagePair.Load() || s.exhausted()
}

func (s *sharedState) exhausted() bool {
	return int(s.consecutiveFailures.Load()) >= s.threshold
}

// abort records a fatal error
func (s *sharedState) abort(err error) {
	if translator.IsKind(err, translator.KindLanguagePairUnsupported) {
		s.languagePair.Store(true)
	}
	s.capture(err)
}

// capture keeps err if it is more specific than what was seen before.
// Cancellation is never kept; it is reported from the request context.
func (s *sharedState) capture(err error) {
	kind := translator.KindOf(err)
	if kind == translator.KindUserCancelled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == nil || kind.Rank() > translator.KindOf(s.err).Rank() {
		s.err = err
	}
}

func (s *sharedState) mostSpecific() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *sharedState) batchSucceeded() {
	s.consecutiveFailures.Store(0)
}

// batchFailed counts a batch that produced nothing; it returns the new count
func (s *sharedState) batchFailed() int {
	return int(s.consecutiveFailures.Add(1))
}
