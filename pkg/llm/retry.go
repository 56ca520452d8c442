package llm

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"
)

// Outcome tags the result of a bounded retry loop.
type Outcome int

// retry outcomes
const (
	OutcomeOK          Outcome = iota // attempt succeeded
	OutcomeRateLimited                // rate limited on the final attempt
	OutcomeParseError                 // unparsable response on the final attempt
	OutcomeExhausted                  // retry budget spent on other failures
)

// RetryPolicy bounds the retry loop: rate-limit errors back off with jitter
// up to MaxRateLimited attempts, parse errors get MaxParseRetries extra
// attempts, anything else fails immediately.
type RetryPolicy struct {
	MaxRateLimited  int
	MaxParseRetries int
	BaseDelay       time.Duration
}

// DefaultRetryPolicy matches the summarizer contract: small rate-limit
// budget with exponential backoff plus jitter, one retry on parse errors.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRateLimited: 3, MaxParseRetries: 1, BaseDelay: time.Second}
}

// withRetry runs fn under the policy and returns the tagged outcome with the
// last error. fn classifies its own failures via errRateLimited/errParse.
func withRetry(ctx context.Context, policy RetryPolicy, fn func() error) (Outcome, error) {
	rateLimited := 0
	parseRetries := 0

	for {
		err := fn()
		if err == nil {
			return OutcomeOK, nil
		}

		switch {
		case isRateLimited(err):
			rateLimited++
			if rateLimited > policy.MaxRateLimited {
				return OutcomeRateLimited, err
			}
			delay := backoffDelay(policy.BaseDelay, rateLimited)
			lgr.Printf("[WARN] completion rate limited, retry %d/%d in %v", rateLimited, policy.MaxRateLimited, delay)
			select {
			case <-ctx.Done():
				return OutcomeExhausted, ctx.Err()
			case <-time.After(delay):
			}
		case errors.Is(err, ErrMalformedCompletion):
			parseRetries++
			if parseRetries > policy.MaxParseRetries {
				return OutcomeParseError, err
			}
			lgr.Printf("[WARN] unparsable completion, retry %d/%d", parseRetries, policy.MaxParseRetries)
		default:
			return OutcomeExhausted, err
		}
	}
}

// backoffDelay is exponential in the attempt number with up to 50% jitter
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1)) //nolint:gosec // jitter needs no crypto rand
	return delay + jitter
}

// isRateLimited recognizes HTTP 429 from OpenAI-compatible services
func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	return false
}
