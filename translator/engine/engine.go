// Package engine runs translation requests against registered providers:
// it validates, consults the cache, swaps languages, plans batches, drives a
// bounded worker pool with per-segment fallback and aggregates the results
// in segment order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/cache"
	"github.com/ownlingo/transmux/translator/history"
	"github.com/ownlingo/transmux/translator/langswap"
	"github.com/ownlingo/transmux/translator/registry"
	"github.com/ownlingo/transmux/translator/retry"
)

const tracerName = "github.com/ownlingo/transmux/translator/engine"

// HistorySink receives an entry after every successful non-structured
// translation
type HistorySink interface {
	Append(history.Entry)
	Clear()
}

// Config holds engine configuration
type Config struct {
	Registry      *registry.Registry
	Swapper       *langswap.Swapper // Nil disables language swapping
	Cache         *cache.Store
	History       HistorySink
	DefaultSource string
	DefaultTarget string
	SegmentRetry  *retry.Config // Per-segment fallback policy
	Logger        *zap.Logger
}

// DefaultConfig returns an engine configuration around reg
func DefaultConfig(reg *registry.Registry) *Config {
	return &Config{
		Registry:      reg,
		Cache:         cache.New(cache.DefaultCapacity),
		History:       history.New(history.DefaultCapacity),
		DefaultSource: translator.SourceAuto,
		DefaultTarget: "en",
		SegmentRetry:  retry.SegmentConfig(),
	}
}

// Engine executes translation requests. It is safe for concurrent use; the
// cache and registry are the only state shared between requests.
type Engine struct {
	registry      *registry.Registry
	swapper       *langswap.Swapper
	cache         *cache.Store
	history       HistorySink
	defaultSource string
	defaultTarget string
	segmentRetry  *retry.Config
	log           *zap.Logger
	tracer        trace.Tracer

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// CacheStats reports cache occupancy
type CacheStats struct {
	Size          int `json:"size"`
	ProviderCount int `json:"providerCount"`
}

// New creates an engine. The engine owns the registry and closes it on Close.
func New(config *Config) *Engine {
	if config == nil {
		panic("config cannot be nil")
	}
	if config.Registry == nil {
		panic("registry cannot be nil")
	}

	e := &Engine{
		registry:      config.Registry,
		swapper:       config.Swapper,
		cache:         config.Cache,
		history:       config.History,
		defaultSource: config.DefaultSource,
		defaultTarget: config.DefaultTarget,
		segmentRetry:  config.SegmentRetry,
		log:           config.Logger,
		tracer:        otel.Tracer(tracerName),
		active:        make(map[string]context.CancelFunc),
	}

	if e.cache == nil {
		e.cache = cache.New(cache.DefaultCapacity)
	}
	if e.history == nil {
		e.history = history.New(history.DefaultCapacity)
	}
	if e.defaultSource == "" {
		e.defaultSource = translator.SourceAuto
	}
	if e.segmentRetry == nil {
		e.segmentRetry = retry.SegmentConfig()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}

	return e
}

// Execute runs req to a terminal state. Failures are reported in the
// response, never returned.
func (e *Engine) Execute(ctx context.Context, req *translator.TranslationRequest) *translator.TranslationResponse {
	if req == nil {
		return fail(&translator.TranslationResponse{Timestamp: time.Now()},
			translator.Errorf(translator.KindValidation, "request is nil"))
	}

	r := e.normalize(req)
	resp := &translator.TranslationResponse{
		ID:             r.ID,
		State:          translator.StateValidating,
		Provider:       r.Provider,
		SourceLanguage: r.SourceLanguage,
		TargetLanguage: r.TargetLanguage,
	}

	ctx, span := e.tracer.Start(ctx, "engine.Execute", trace.WithAttributes(
		attribute.String("request.id", r.ID),
		attribute.String("provider", r.Provider),
		attribute.String("mode", string(r.Mode)),
	))
	defer span.End()

	log := e.log.With(zap.String("request_id", r.ID), zap.String("provider", r.Provider))

	e.execute(ctx, r, resp, log)
	resp.Timestamp = time.Now()

	if !resp.Success {
		span.SetStatus(codes.Error, resp.Error)
	}
	span.SetAttributes(attribute.String("state", string(resp.State)), attribute.Bool("from_cache", resp.FromCache))

	return resp
}

func (e *Engine) execute(ctx context.Context, r *translator.TranslationRequest, resp *translator.TranslationResponse, log *zap.Logger) {
	var segments []translator.Segment

	switch {
	case blank(r.Text):
		fail(resp, translator.Errorf(translator.KindValidation, "text is empty"))
		return
	case !r.Mode.Valid():
		fail(resp, translator.Errorf(translator.KindValidation, "unknown mode %q", r.Mode))
		return
	case r.Mode.Structured():
		var err error
		if segments, err = parseSegments(r.Text); err != nil {
			fail(resp, translator.NewError(translator.KindValidation, "", fmt.Errorf("malformed structured payload: %w", err)))
			return
		}
	}

	provider, err := e.registry.Resolve(ctx, r.Provider)
	if err != nil {
		fail(resp, translator.NewError(translator.KindValidation, r.Provider, err))
		return
	}

	ctx, done, err := e.begin(ctx, r.ID)
	if err != nil {
		fail(resp, err)
		return
	}
	defer done()

	resp.State = translator.StateCacheCheck
	key := cache.BuildKey(r.Provider, r.SourceLanguage, r.TargetLanguage, r.Mode, r.Text)

	if entry, ok := e.cache.Get(key); ok {
		log.Debug("served from cache")
		resp.Success = true
		resp.TranslatedText = entry.TranslatedText
		resp.FromCache = true
		resp.State = translator.StateCompleted
		if entry.SourceLanguage != "" {
			resp.SourceLanguage, resp.TargetLanguage = entry.SourceLanguage, entry.TargetLanguage
		}
		if !r.Mode.Structured() {
			e.appendHistory(r, resp)
		}
		return
	}

	run := e.newRun(r, provider, segments, log)
	resp.SourceLanguage, resp.TargetLanguage = run.source, run.target

	resp.State = translator.StatePlanning
	text, complete, err := run.execute(ctx, resp)
	if err != nil {
		if translator.IsKind(err, translator.KindUserCancelled) {
			log.Info("translation cancelled")
		} else {
			log.Warn("translation failed", zap.Error(err))
		}
		fail(resp, err)
		return
	}

	resp.Success = true
	resp.TranslatedText = text
	resp.State = translator.StateCompleted

	if complete {
		e.cache.Put(key, cache.Entry{
			TranslatedText: text,
			SourceLanguage: resp.SourceLanguage,
			TargetLanguage: resp.TargetLanguage,
			CachedAt:       time.Now(),
		})
	}
	if !r.Mode.Structured() {
		e.appendHistory(r, resp)
	}

	log.Info("translation completed",
		zap.String("source", resp.SourceLanguage),
		zap.String("target", resp.TargetLanguage),
		zap.Bool("complete", complete))
}

// normalize copies req with defaults applied
func (e *Engine) normalize(req *translator.TranslationRequest) *translator.TranslationRequest {
	r := *req

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Mode == "" {
		r.Mode = translator.ModeSimple
	}
	if r.SourceLanguage == "" {
		r.SourceLanguage = e.defaultSource
	}
	if r.TargetLanguage == "" {
		r.TargetLanguage = e.defaultTarget
	}

	return &r
}

// begin registers the abort handle of a request
func (e *Engine) begin(ctx context.Context, id string) (context.Context, func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.active[id]; ok {
		return nil, nil, translator.Errorf(translator.KindValidation, "request %q is already in flight", id)
	}

	ctx, cancel := context.WithCancel(ctx)
	e.active[id] = cancel

	return ctx, func() {
		e.mu.Lock()
		delete(e.active, id)
		e.mu.Unlock()
		cancel()
	}, nil
}

// Cancel signals the in-flight request with the given ID. It reports whether
// such a request was found.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	cancel, ok := e.active[id]
	e.mu.Unlock()

	if ok {
		e.log.Debug("cancelling request", zap.String("request_id", id))
		cancel()
	}

	return ok
}

// CacheStats returns the cache size and the number of instantiated providers
func (e *Engine) CacheStats() CacheStats {
	return CacheStats{
		Size:          e.cache.Len(),
		ProviderCount: e.registry.Instantiated(),
	}
}

// ClearCache drops every cached translation
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// ClearHistory drops the translation history
func (e *Engine) ClearHistory() {
	e.history.Clear()
}

// Close cancels in-flight requests and closes the registry
func (e *Engine) Close() error {
	e.mu.Lock()
	for _, cancel := range e.active {
		cancel()
	}
	e.mu.Unlock()

	return e.registry.Close()
}

func (e *Engine) appendHistory(r *translator.TranslationRequest, resp *translator.TranslationResponse) {
	e.history.Append(history.Entry{
		SourceText:     r.Text,
		TranslatedText: resp.TranslatedText,
		SourceLanguage: resp.SourceLanguage,
		TargetLanguage: resp.TargetLanguage,
		Provider:       r.Provider,
		Mode:           r.Mode,
		Timestamp:      time.Now(),
	})
}

// fail moves resp to its terminal failure state
func fail(resp *translator.TranslationResponse, err error) *translator.TranslationResponse {
	kind := translator.KindOf(err)

	resp.Success = false
	resp.Err = err
	resp.ErrorKind = kind
	resp.Error = err.Error()
	resp.State = translator.StateFailed

	if kind == translator.KindUserCancelled {
		resp.State = translator.StateCancelled
		resp.Error = "translation cancelled"
	}

	return resp
}

var errUnreachable = errors.New("provider unreachable")

func unreachable(provider string, cause error) error {
	if cause == nil {
		return translator.NewError(translator.KindTransient, provider, errUnreachable)
	}
	return translator.NewError(translator.KindTransient, provider, fmt.Errorf("%w: %w", errUnreachable, cause))
}
