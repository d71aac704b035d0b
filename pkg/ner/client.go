// Package ner talks to the external named-entity-recognition service that
// scores free-text samples for person names, addresses, and similar
// entities. The service is guarded by a circuit breaker so a dead endpoint
// degrades detection instead of stalling scans.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/privya-inc/privya-engine/pkg/apperrors"
	"github.com/privya-inc/privya-engine/pkg/config"
	"github.com/privya-inc/privya-engine/pkg/metrics"
)

// Entity is one recognized entity in a batch of texts.
type Entity struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Client sends sample batches to a NER service. Implementations must be
// safe for concurrent use across columns.
type Client interface {
	// Extract scores the given texts. The column name travels with the
	// request so the service can use it as context.
	Extract(ctx context.Context, column string, texts []string) ([]Entity, error)
}

type extractRequest struct {
	Texts  []string `json:"texts"`
	Column string   `json:"column"`
}

type extractResponse struct {
	Entities []Entity `json:"entities"`
}

// HTTPClient is the production Client backed by net/http with retry on
// transport failures and a circuit breaker on every failure kind.
type HTTPClient struct {
	url           string
	httpClient    *http.Client
	breaker       *CircuitBreaker
	retryAttempts int
	logger        *zap.Logger
}

// NewHTTPClient builds a Client from the NER configuration.
func NewHTTPClient(cfg config.NERConfig, logger *zap.Logger) *HTTPClient {
	breaker := NewCircuitBreaker(
		cfg.CircuitBreaker.FailureThreshold,
		time.Duration(cfg.CircuitBreaker.ResetTimeoutSecond)*time.Second,
	)
	return &HTTPClient{
		url: cfg.URL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		breaker:       breaker,
		retryAttempts: cfg.RetryAttempts,
		logger:        logger.Named("ner-client"),
	}
}

// Breaker exposes the circuit breaker for observability.
func (c *HTTPClient) Breaker() *CircuitBreaker { return c.breaker }

// Extract posts the batch to the service. While the breaker is open the call
// fails fast with ErrCircuitOpen and no request is made. Transport failures
// are retried with exponential backoff up to the configured attempts; each
// failed attempt counts against the breaker. A non-2xx response is not
// retried.
func (c *HTTPClient) Extract(ctx context.Context, column string, texts []string) ([]Entity, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(extractRequest{Texts: texts, Column: column})
	if err != nil {
		return nil, fmt.Errorf("marshal ner request: %w", err)
	}

	var lastErr error
	delay := 200 * time.Millisecond

	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if allowed, reason := c.breaker.Allow(); !allowed {
			metrics.NERBreakerState.Set(float64(c.breaker.State()))
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCircuitOpen, reason)
		}

		entities, retryable, err := c.doRequest(ctx, body)
		metrics.NERBreakerState.Set(float64(c.breaker.State()))
		if err == nil {
			return entities, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Warn("ner request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.retryAttempts+1),
			zap.Error(err))
	}

	return nil, lastErr
}

// doRequest performs one HTTP attempt. The retryable flag is true only for
// transport-level failures; a served error status is final.
func (c *HTTPClient) doRequest(ctx context.Context, body []byte) (entities []Entity, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("ner request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused; body is ignored on error.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.breaker.RecordFailure()
		return nil, false, fmt.Errorf("ner service returned status %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.breaker.RecordFailure()
		return nil, false, fmt.Errorf("decode ner response: %w", err)
	}

	c.breaker.RecordSuccess()
	return parsed.Entities, false, nil
}
