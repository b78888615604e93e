package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/casefile/internal/cache"
	"github.com/ppiankov/casefile/internal/llm"
	"github.com/ppiankov/casefile/internal/metrics"
	"github.com/ppiankov/casefile/internal/model"
	"github.com/ppiankov/casefile/internal/parse"
	"github.com/ppiankov/casefile/internal/source"
)

// ControllerOptions holds the optional collaborators of a Controller
type ControllerOptions struct {
	Limiter    *Limiter               // call ceiling; nil for none
	Validator  *parse.SchemaValidator // strict schema; nil to skip
	Cache      cache.Cache            // dedupe; nil to disable
	CacheScope string                 // see cache.Scope; defaults to provider name and prompt version
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Sleep      SleepFunc // backoff sleep; defaults to Sleep
}

// Controller runs call + parse + normalize for one item as a retryable unit
type Controller struct {
	provider    llm.Provider
	maxAttempts int
	baseDelay   time.Duration
	callTimeout time.Duration

	limiter   *Limiter
	validator *parse.SchemaValidator
	cache     cache.Cache
	scope     string
	metrics   *metrics.Metrics
	logger    *slog.Logger
	sleep     SleepFunc
}

// NewController creates a retry controller
func NewController(provider llm.Provider, cfg model.RetryConfig, opts ControllerOptions) *Controller {
	c := &Controller{
		provider:    provider,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		callTimeout: cfg.CallTimeout,
		limiter:     opts.Limiter,
		validator:   opts.Validator,
		cache:       opts.Cache,
		scope:       opts.CacheScope,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		sleep:       opts.Sleep,
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.sleep == nil {
		c.sleep = Sleep
	}
	if c.scope == "" {
		c.scope = cache.Scope(provider.Name(), "", llm.PromptVersion)
	}
	return c
}

// Run makes up to maxAttempts remote attempts for item's text. Before
// attempt n+1 it waits baseDelay*n. It returns the first success or the
// last failure; it never panics past the caller.
func (c *Controller) Run(ctx context.Context, item source.Item, text string) Outcome {
	var key string
	if c.cache != nil {
		key = cache.TextKey(c.scope, text)
		if fields, ok := c.cached(item, key); ok {
			return Outcome{Kind: OutcomeSuccess, Fields: fields, Cached: true}
		}
	}

	req := llm.BuildCaseRequest(text)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attempts = attempt

		fields, err := c.attempt(ctx, req)
		c.observeAttempt(err)
		if err == nil {
			if c.cache != nil {
				c.cache.Set(key, fields)
			}
			return Outcome{Kind: OutcomeSuccess, Fields: fields, Attempts: attempts}
		}
		lastErr = err

		// interrupted from outside: stop without burning the remaining attempts
		if ctx.Err() != nil {
			break
		}

		kind := Classify(err)
		if !kind.Retryable() {
			break
		}

		c.logger.Warn("batch.item.attempt_failed",
			"source", item.ID,
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"kind", kind.String(),
			"error", err,
		)

		if attempt == c.maxAttempts {
			break
		}

		delay := c.baseDelay * time.Duration(attempt)
		c.logger.Info("batch.item.retry", "source", item.ID, "next_attempt", attempt+1, "delay", delay)
		if err := c.sleep(ctx, delay); err != nil {
			break
		}
	}

	c.logger.Error("batch.item.give_up",
		"source", item.ID,
		"attempts", attempts,
		"error", lastErr,
	)
	return Outcome{Kind: Classify(lastErr), Err: lastErr, Attempts: attempts}
}

// cached returns a stored answer for key. An entry written by a run
// without schema checks is a miss when it fails the current validator.
func (c *Controller) cached(item source.Item, key string) (model.CaseFields, bool) {
	fields, ok := c.cache.Get(key)
	if !ok {
		return model.CaseFields{}, false
	}
	if c.validator != nil {
		if err := c.validator.Validate(fields); err != nil {
			c.logger.Debug("batch.item.cache_rejected", "source", item.ID, "error", err)
			return model.CaseFields{}, false
		}
	}
	c.logger.Debug("batch.item.cached", "source", item.ID)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return fields, true
}

func (c *Controller) attempt(ctx context.Context, req llm.CompletionRequest) (model.CaseFields, error) {
	if err := c.limiter.WaitCall(ctx); err != nil {
		return model.CaseFields{}, &llm.TransportError{Provider: c.provider.Name(), Err: err}
	}

	callCtx := ctx
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.provider.Complete(callCtx, req)
	if c.metrics != nil {
		c.metrics.CallDuration.WithLabelValues(c.provider.Name()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		var te *llm.TransportError
		if !errors.As(err, &te) && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = &llm.TransportError{
				Provider: c.provider.Name(),
				Err:      fmt.Errorf("call timed out after %s: %w", c.callTimeout, err),
			}
		}
		return model.CaseFields{}, err
	}

	obj, err := parse.FindObject(resp.Text)
	if err != nil {
		return model.CaseFields{}, err
	}

	fields := parse.Normalize(obj)
	if c.validator != nil {
		if err := c.validator.Validate(fields); err != nil {
			return model.CaseFields{}, err
		}
	}
	return fields, nil
}

func (c *Controller) observeAttempt(err error) {
	if c.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = Classify(err).String()
	}
	c.metrics.AttemptsTotal.WithLabelValues(result).Inc()
}
