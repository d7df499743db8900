package engine

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"github.com/ivlev/cyoaseg/internal/keywords"
	"github.com/ivlev/cyoaseg/internal/ocr"
	"github.com/ivlev/cyoaseg/internal/tagger"
)

// Pool bounds concurrent calls into slow collaborators and retries failed
// ones with a constant delay.
type Pool struct {
	sem     *semaphore.Weighted
	retries uint64
	delay   time.Duration
	timeout time.Duration
}

func NewPool(size, retries int, delay, timeout time.Duration) *Pool {
	if size < 1 {
		size = 1
	}
	if retries < 0 {
		retries = 0
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(size)),
		retries: uint64(retries),
		delay:   delay,
		timeout: timeout,
	}
}

// Do runs fn holding one pool slot. Each attempt gets its own timeout.
// Context errors from the caller are never retried.
func Do[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer p.sem.Release(1)

	attempt := func() (T, error) {
		if err := ctx.Err(); err != nil {
			return zero, backoff.Permanent(err)
		}
		callCtx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		v, err := fn(callCtx)
		if err != nil && errors.Is(err, context.Canceled) {
			return zero, backoff.Permanent(err)
		}
		return v, err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(p.delay), p.retries), ctx)
	return backoff.RetryWithData(attempt, policy)
}

// Collaborators are the external services a page needs.
type Collaborators struct {
	OCR        ocr.Recognizer
	Classifier tagger.Classifier
	Keywords   *keywords.Extractor
}

func (p *Pool) recognize(ctx context.Context, rec ocr.Recognizer, img image.Image, opts ocr.Options) ([]ocr.Detection, error) {
	return Do(ctx, p, func(ctx context.Context) ([]ocr.Detection, error) {
		return ocr.Read(ctx, rec, img, opts)
	})
}

func (p *Pool) classify(ctx context.Context, c tagger.Classifier, img image.Image) (map[string]float64, error) {
	return Do(ctx, p, func(ctx context.Context) (map[string]float64, error) {
		return c.Classify(ctx, img)
	})
}

func (p *Pool) extract(ctx context.Context, e *keywords.Extractor, text string) ([]keywords.Keyword, error) {
	return Do(ctx, p, func(ctx context.Context) ([]keywords.Keyword, error) {
		return e.Extract(ctx, text)
	})
}
