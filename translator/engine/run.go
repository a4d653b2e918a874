package engine

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/batch"
	"github.com/ownlingo/transmux/translator/cache"
	"github.com/ownlingo/transmux/translator/langswap"
	"github.com/ownlingo/transmux/translator/ratelimit"
	"github.com/ownlingo/transmux/translator/retry"
)

// run carries one request through planning, dispatch and aggregation
type run struct {
	e        *Engine
	req      *translator.TranslationRequest
	provider translator.Provider
	desc     translator.Descriptor
	tuning   translator.Tuning
	log      *zap.Logger

	source, target string // Effective languages after swapping
	opts           translator.Options

	segments   []translator.Segment
	results    []string // Indexed by segment; starts as the original text
	translated []bool

	throttle *ratelimit.Throttle
	retry    retry.Config
	state    *sharedState
}

func (e *Engine) newRun(r *translator.TranslationRequest, p translator.Provider, segments []translator.Segment, log *zap.Logger) *run {
	desc := p.Descriptor()

	rn := &run{
		e:        e,
		req:      r,
		provider: p,
		desc:     desc,
		tuning:   desc.Tuning.Normalized(desc.Category),
		log:      log,
		source:   r.SourceLanguage,
		target:   r.TargetLanguage,
		segments: segments,
		opts: translator.Options{
			Mode:                   r.Mode,
			OriginalSourceLanguage: r.SourceLanguage,
			OriginalTargetLanguage: r.TargetLanguage,
		},
	}

	rn.results = make([]string, len(segments))
	rn.translated = make([]bool, len(segments))
	for i, s := range segments {
		rn.results[i] = s.Text
	}

	rn.throttle = ratelimit.NewThrottle(rn.tuning.RequestDelay)
	rn.state = newSharedState(rn.tuning.FailureThreshold)

	rn.retry = *e.segmentRetry
	rn.retry.RetryRateLimited = false
	rn.retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Debug("retrying segment", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}

	rn.swap()

	return rn
}

// swap resolves the effective languages once, on representative text
func (r *run) swap() {
	if r.e.swapper == nil {
		return
	}

	sample := r.req.Text
	if r.req.Mode.Structured() {
		texts := make([]string, len(r.segments))
		for i, s := range r.segments {
			texts[i] = s.Text
		}
		sample = langswap.Sample(texts)
	}

	res := r.e.swapper.Resolve(sample, r.source, r.target)
	if res.Swapped {
		r.log.Debug("swapping languages",
			zap.String("detected", res.Detected),
			zap.String("source", res.Source),
			zap.String("target", res.Target))
	}

	r.source, r.target = res.Source, res.Target
}

// execute returns the translated text and whether every segment that needed
// translation was translated
func (r *run) execute(ctx context.Context, resp *translator.TranslationResponse) (string, bool, error) {
	if !r.req.Mode.Structured() {
		resp.State = translator.StateRunning
		text, err := r.translateText(ctx, r.req.Text)
		if err != nil {
			return "", false, err
		}
		resp.State = translator.StateAggregating
		return translator.RestoreSpacing(r.req.Text, text), true, nil
	}

	if r.desc.ReliableJSONMode {
		text, err := r.direct(ctx)
		if err == nil {
			return text, true, nil
		}
		if translator.KindOf(err).Fatal() {
			return "", false, err
		}
		r.log.Warn("direct structured call failed, falling back to batches", zap.Error(err))
	}

	resp.State = translator.StateRunning
	if err := r.dispatch(ctx); err != nil {
		return "", false, err
	}

	resp.State = translator.StateAggregating
	return r.aggregate()
}

// direct sends the whole structured payload in one call
func (r *run) direct(ctx context.Context) (string, error) {
	reply, err := r.call(ctx, r.req.Text)
	if err != nil {
		return "", err
	}

	texts, err := parseReply(reply, len(r.segments))
	if err != nil {
		return "", translator.NewError(translator.KindTransient, r.desc.ID, err)
	}

	translated := make([]bool, len(texts))
	for i, s := range r.segments {
		if blank(s.Text) {
			continue
		}
		texts[i] = translator.RestoreSpacing(s.Text, texts[i])
		translated[i] = true
	}

	return rebuild(r.req.Text, texts, translated)
}

// dispatch plans the segments that still need a provider and runs the
// worker pool over the batches
func (r *run) dispatch(ctx context.Context) error {
	var pending []translator.Segment

	for _, s := range r.segments {
		if blank(s.Text) {
			continue
		}
		if entry, ok := r.e.cache.Get(r.segmentKey(s.Text)); ok {
			r.results[s.Index] = translator.RestoreSpacing(s.Text, entry.TranslatedText)
			r.translated[s.Index] = true
			continue
		}
		pending = append(pending, s)
	}

	if len(pending) == 0 {
		return nil
	}

	batches := batch.Plan(pending, r.tuning.BatchSize, r.tuning.MaxChars)

	workers := r.tuning.Workers
	if workers > len(batches) {
		workers = len(batches)
	}

	r.log.Debug("dispatching batches",
		zap.Int("segments", len(pending)),
		zap.Int("batches", len(batches)),
		zap.Int("workers", workers))

	var next atomic.Int64
	g, gctx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if r.state.standDown(gctx) {
					return nil
				}

				i := int(next.Add(1)) - 1
				if i >= len(batches) {
					return nil
				}

				if err := r.runBatch(gctx, i, batches[i]); err != nil {
					return err
				}
			}
		})
	}

	err := g.Wait()

	// Cancellation of the request wins over whatever the workers saw
	if cerr := ctx.Err(); cerr != nil {
		return translator.Classify(r.desc.ID, cerr)
	}
	if err != nil {
		return err
	}

	if r.state.exhausted() {
		r.log.Warn("failure threshold reached, stopping early",
			zap.Int("threshold", r.state.threshold))
		return unreachable(r.desc.ID, r.state.mostSpecific())
	}

	return nil
}

// runBatch translates one batch. Only fatal errors are returned.
func (r *run) runBatch(ctx context.Context, n int, b batch.Batch) error {
	ctx, span := r.e.tracer.Start(ctx, "engine.batch", trace.WithAttributes(
		attribute.Int("batch.index", n),
		attribute.Int("batch.segments", b.Len()),
		attribute.Int("batch.chars", b.CharBudgetUsed),
	))
	defer span.End()

	if err := r.throttle.Wait(ctx); err != nil {
		return translator.Classify(r.desc.ID, err)
	}

	if b.Len() == 1 {
		return r.settle(r.fallback(ctx, b))
	}

	texts := make([]string, b.Len())
	for i, idx := range b.SegmentIndices {
		texts[i] = r.segments[idx].Text
	}

	reply, err := r.call(ctx, translator.JoinSegments(texts))
	if err != nil {
		if translator.KindOf(err).Fatal() {
			r.state.abort(err)
			return err
		}
		r.state.capture(err)
		r.log.Warn("batch call failed, translating segments individually",
			zap.Int("batch", n), zap.Error(err))
		return r.settle(r.fallback(ctx, b))
	}

	parts := translator.SplitSegments(reply)
	if !complete(parts, b.Len()) {
		r.log.Warn("batch reply did not split cleanly, translating segments individually",
			zap.Int("batch", n), zap.Int("parts", len(parts)), zap.Int("want", b.Len()))
		return r.settle(r.fallback(ctx, b))
	}

	for i, idx := range b.SegmentIndices {
		r.accept(idx, parts[i])
	}
	r.state.batchSucceeded()

	return nil
}

// fallback translates each segment of b on its own, stopping at the first
// fatal error. It reports whether any segment succeeded and the last error.
func (r *run) fallback(ctx context.Context, b batch.Batch) (bool, error) {
	ok := false
	var last error

	for _, idx := range b.SegmentIndices {
		text, err := r.translateText(ctx, r.segments[idx].Text)
		if err != nil {
			last = err
			if translator.KindOf(err).Fatal() {
				break
			}
			r.log.Debug("segment left untranslated", zap.Int("segment", idx), zap.Error(err))
			continue
		}
		r.accept(idx, text)
		ok = true
	}

	return ok, last
}

// settle turns a fallback outcome into the batch result. Only fatal errors
// are returned; only a batch that produced nothing because of a transient
// error counts toward the failure threshold.
func (r *run) settle(ok bool, err error) error {
	kind := translator.KindOf(err)

	switch {
	case kind.Fatal():
		r.state.abort(err)
		return err
	case ok:
		r.state.batchSucceeded()
	case kind == translator.KindTransient:
		r.state.batchFailed()
	}

	return nil
}

// translateText makes one logical call with the per-segment retry budget
func (r *run) translateText(ctx context.Context, text string) (string, error) {
	var out string

	err := retry.Do(ctx, &r.retry, func() error {
		reply, err := r.call(ctx, text)
		if err != nil {
			return err
		}
		if blank(reply) {
			return translator.Errorf(translator.KindTransient, "empty translation")
		}
		out = reply
		return nil
	})
	if err != nil {
		err = translator.Classify(r.desc.ID, err)
		r.state.capture(err)
		return "", err
	}

	return out, nil
}

func (r *run) call(ctx context.Context, text string) (string, error) {
	out, err := r.provider.Translate(ctx, text, r.source, r.target, r.opts)
	return out, translator.Classify(r.desc.ID, err)
}

// accept stores the translation of segment idx and caches it. No two workers
// ever accept the same index.
func (r *run) accept(idx int, text string) {
	original := r.segments[idx].Text
	text = translator.RestoreSpacing(original, text)

	r.results[idx] = text
	r.translated[idx] = true

	r.e.cache.Put(r.segmentKey(original), cache.Entry{
		TranslatedText: text,
		SourceLanguage: r.source,
		TargetLanguage: r.target,
		CachedAt:       time.Now(),
	})
}

func (r *run) segmentKey(text string) string {
	return cache.BuildKey(r.req.Provider, r.source, r.target, r.req.Mode, text)
}

// aggregate rebuilds the structured payload from the per-segment results
func (r *run) aggregate() (string, bool, error) {
	required, done := 0, 0
	for i, s := range r.segments {
		if blank(s.Text) {
			continue
		}
		required++
		if r.translated[i] {
			done++
		}
	}

	if required > 0 && done == 0 {
		if err := r.state.mostSpecific(); err != nil {
			return "", false, err
		}
		return "", false, unreachable(r.desc.ID, nil)
	}

	if done < required {
		r.log.Info("some segments left untranslated",
			zap.Int("untranslated", required-done), zap.Int("segments", required))
	}

	text, err := rebuild(r.req.Text, r.results, r.translated)
	if err != nil {
		return "", false, translator.NewError(translator.KindValidation, r.desc.ID, err)
	}

	return text, done == required, nil
}

// complete reports whether a split reply has exactly want non-blank parts
func complete(parts []string, want int) bool {
	if len(parts) != want {
		return false
	}
	for _, p := range parts {
		if blank(p) {
			return false
		}
	}
	return true
}
