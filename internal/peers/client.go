// Package peers holds the resilient HTTP clients for sibling services. Every
// peer gets its own Client instance, so breaker state for one dependency can
// never fail calls to another.
package peers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
)

const (
	defaultAttemptTimeout = 5 * time.Second
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 200 * time.Millisecond
	breakerWindow         = 60 * time.Second
	breakerCooldown       = 15 * time.Second
	breakerMinSamples     = 2
)

// Client wraps one peer base URL with retry, per-attempt and total timeouts,
// and a circuit breaker. While the circuit is open, calls fail fast with
// errs.ErrDependencyUnavailable and no network attempt is made.
type Client struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry

	total          time.Duration
	attemptTimeout time.Duration
	maxAttempts    int
	initialBackoff time.Duration
}

// New builds a Client for one peer. total bounds the whole call including
// retries and backoff; callers use 20s for existence checks and 30s for
// product reads.
func New(name, base string, total time.Duration) *Client {
	st := gobreaker.Settings{
		Name:     name,
		Interval: breakerWindow,
		Timeout:  breakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= breakerMinSamples &&
				float64(c.TotalFailures)/float64(c.Requests) >= 0.5
		},
		// a well-formed negative answer is a healthy dependency
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrValidation)
		},
	}
	return &Client{
		base:           strings.TrimRight(base, "/"),
		http:           &http.Client{},
		breaker:        gobreaker.NewCircuitBreaker(st),
		log:            logrus.WithField("peer", name),
		total:          total,
		attemptTimeout: defaultAttemptTimeout,
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
	}
}

// getJSON performs GET base+path under the full policy and decodes a 2xx
// body into out (out may be nil when only the status matters). 404 maps to
// errs.ErrNotFound; exhausted retries and open circuits map to
// errs.ErrDependencyUnavailable.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.total)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx)

	op := func() error {
		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.attempt(ctx, path, out)
		})
		switch {
		case err == nil:
			return nil
		case err == gobreaker.ErrOpenState, err == gobreaker.ErrTooManyRequests:
			return backoff.Permanent(errors.Wrapf(errs.ErrDependencyUnavailable, "%s%s: circuit open", c.base, path))
		case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrValidation):
			return backoff.Permanent(err)
		default:
			return err
		}
	}

	err := backoff.Retry(op, policy)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrDependencyUnavailable),
		errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrValidation):
		return err
	default:
		c.log.WithError(err).WithField("path", path).Warn("retries exhausted")
		return errors.Wrapf(errs.ErrDependencyUnavailable, "%s%s: retries exhausted: %s", c.base, path, err)
	}
}

func (c *Client) attempt(ctx context.Context, path string, out any) error {
	actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(errs.ErrNotFound, "GET %s", path)
	case resp.StatusCode >= 500:
		return errors.Errorf("GET %s: status %d", path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return errors.Wrapf(errs.ErrValidation, "GET %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "GET %s: decode body", path)
	}
	return nil
}
