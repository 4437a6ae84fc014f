package scoring

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/couchcryptid/solar-forecast-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey        = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var testColumns = []string{"temperature", "cloud_cover", "wind_speed", "hour_sin", "hour_cos", "month_sin", "month_cos"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(endpoint string) *Client {
	return NewClient(endpoint, testAPIKey, 5*time.Second, observability.NewMetricsForTesting(), discardLogger())
}

func TestClient_Predict_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))
		assert.Equal(t, contentTypeJSON, r.Header.Get(headerContentType))

		var req struct {
			Columns []string     `json:"columns"`
			Data    [][]*float64 `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testColumns, req.Columns)
		require.Len(t, req.Data, 2)
		assert.Nil(t, req.Data[1][0], "NaN must be sent as null")

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"predictions": [71.5, 12.25]}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Predict(context.Background(), testColumns, []domain.Vector{
		{25, 30, 5, 0, -1, 1, 0},
		{math.NaN(), 30, 5, 0, -1, 1, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{71.5, 12.25}, got)
}

func TestClient_Predict_NoVectors(t *testing.T) {
	got, err := testClient("http://127.0.0.1:0").Predict(context.Background(), testColumns, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_Predict_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Predict(context.Background(), testColumns, []domain.Vector{{25, 30, 5, 0, -1, 1, 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestClient_Predict_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"predictions": [1]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Predict(context.Background(), testColumns, []domain.Vector{{1}, {2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 predictions for 2 vectors")
}

func TestClient_Predict_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Predict(context.Background(), testColumns, []domain.Vector{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for i := 0; i < 5; i++ {
		_, err := c.Predict(context.Background(), testColumns, []domain.Vector{{1}})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}

	_, err := c.Predict(context.Background(), testColumns, []domain.Vector{{1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(5), calls.Load())
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"predictions": [1]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).Predict(ctx, testColumns, []domain.Vector{{1}})
	require.Error(t, err)
}
