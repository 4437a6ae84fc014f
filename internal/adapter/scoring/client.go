package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/couchcryptid/solar-forecast-etl/internal/observability"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls to the endpoint.
var ErrCircuitOpen = errors.New("scoring circuit breaker open")

// Client implements forecast.Model against a remote scoring endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a scoring client. Calls are authenticated with a bearer
// key when apiKey is non-empty.
func NewClient(endpoint, apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		circuit: newCircuitBreaker(logger),
		metrics: metrics,
		logger:  logger,
	}
}

func newCircuitBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scoring",
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

type scoreRequest struct {
	Columns []string        `json:"columns"`
	Data    []domain.Vector `json:"data"`
}

type scoreResponse struct {
	Predictions []float64 `json:"predictions"`
}

// Predict sends the vectors in one request and returns one prediction per vector.
func (c *Client) Predict(ctx context.Context, columns []string, vectors []domain.Vector) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(scoreRequest{Columns: columns, Data: vectors})
	if err != nil {
		return nil, fmt.Errorf("encode scoring request: %w", err)
	}

	start := time.Now()
	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, body)
	})
	c.metrics.ScoringAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.ScoringRequests.WithLabelValues("open").Inc()
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		c.metrics.ScoringRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	predictions, ok := result.([]float64)
	if !ok {
		c.metrics.ScoringRequests.WithLabelValues("error").Inc()
		return nil, errors.New("unexpected result type from circuit breaker")
	}
	if len(predictions) != len(vectors) {
		c.metrics.ScoringRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("scoring endpoint returned %d predictions for %d vectors", len(predictions), len(vectors))
	}

	c.metrics.ScoringRequests.WithLabelValues("success").Inc()
	return predictions, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scoring request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("scoring API error: status %d: %s", resp.StatusCode, msg)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Predictions, nil
}
