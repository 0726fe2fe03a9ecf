package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// LoggingMiddleware logs requests, responses, and errors through zerolog.
func LoggingMiddleware(logger zerolog.Logger) Middleware {
	logger = logger.With().Str("component", "llm").Logger()
	return MiddlewareFunc{
		BeforeRequestFunc: func(ctx context.Context, req *Request) (*Request, error) {
			logger.Debug().
				Str("model", req.Model).
				Int("messages", len(req.Messages)).
				Int("tools", len(req.Tools)).
				Bool("json_mode", req.JSONMode).
				Msg("LLM request")
			return req, nil
		},
		AfterResponseFunc: func(ctx context.Context, req *Request, resp *Response) (*Response, error) {
			event := logger.Debug().
				Str("model", resp.Model).
				Str("finish_reason", string(resp.FinishReason)).
				Int64("input_tokens", resp.InputTokens()).
				Int64("output_tokens", resp.OutputTokens())
			if cost := resp.Cost(); cost != nil {
				event = event.Float64("cost_usd", *cost)
			}
			event.Msg("LLM response")
			return resp, nil
		},
		OnErrorFunc: func(ctx context.Context, req *Request, err error) error {
			logger.Warn().Str("model", req.Model).Err(err).Msg("LLM call failed")
			return err
		},
	}
}

// RetryConfig controls RetryMiddleware.
type RetryConfig struct {
	MaxAttempts     uint64        // total attempts including the first; 0 means 3
	InitialInterval time.Duration // 0 means backoff default
	MaxInterval     time.Duration // 0 means backoff default
}

// RetryMiddleware retries failed calls with exponential backoff. Only errors
// the taxonomy marks retryable are retried, and a rate limit's retry-after
// hint overrides the computed backoff interval. Prior attempts are discarded;
// only the last error surfaces.
//
// Implemented as a Client wrapper rather than a Middleware hook: retrying
// needs to re-enter the call, which the hook interface cannot express.
func RetryMiddleware(client Client, cfg RetryConfig, logger zerolog.Logger) Client {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	return &retryingClient{client: client, cfg: cfg, logger: logger.With().Str("component", "llm_retry").Logger()}
}

type retryingClient struct {
	client Client
	cfg    RetryConfig
	logger zerolog.Logger
}

func (c *retryingClient) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if c.cfg.InitialInterval > 0 {
		bo.InitialInterval = c.cfg.InitialInterval
	}
	if c.cfg.MaxInterval > 0 {
		bo.MaxInterval = c.cfg.MaxInterval
	}
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxAttempts-1), ctx)
}

// Call implements Client.Call with retry.
func (c *retryingClient) Call(ctx context.Context, req *Request) (*Response, error) {
	var resp *Response
	operation := func() error {
		var err error
		resp, err = c.client.Call(ctx, req)
		if err == nil {
			return nil
		}
		if !IsRetryableError(err) {
			return backoff.Permanent(err)
		}
		if after := ExtractRetryAfter(err); after != nil {
			c.logger.Debug().Dur("retry_after", *after).Msg("honoring retry-after hint")
			select {
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			case <-time.After(*after):
			}
			return err
		}
		c.logger.Debug().Err(err).Msg("retrying LLM call")
		return err
	}
	if err := backoff.Retry(operation, c.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

// Stream implements Client.Stream. Only stream establishment is retried;
// errors mid-stream propagate unmodified per the streaming failure policy.
func (c *retryingClient) Stream(ctx context.Context, req *Request) (Stream, error) {
	var stream Stream
	operation := func() error {
		var err error
		stream, err = c.client.Stream(ctx, req)
		if err == nil {
			return nil
		}
		if !IsRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(operation, c.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return stream, nil
}

var _ Client = (*retryingClient)(nil)
