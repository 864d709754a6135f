package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerToWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestMetricsHandler(t *testing.T) {
	FetchesTotal.WithLabelValues(ResultOK).Inc()

	srv := httptest.NewServer(MetricsHandler(nil))
	defer srv.Close()

	code, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	code, body = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "utahsky_fetches_total")
	assert.Contains(t, body, "utahsky_aircraft_tracked")
}

func TestHealthzReportsFailedCheck(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(MetricsHandler(func(context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("ping: connection refused")
	}))
	defer srv.Close()

	code, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "connection refused")

	healthy.Store(true)
	code, body = get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)
}

func TestObserveFetchLatency(t *testing.T) {
	ObserveFetchLatency(time.Now().Add(-time.Second))
	assert.Equal(t, 1, testutil.CollectAndCount(FetchLatency))
}

func TestFetchesTotalByResult(t *testing.T) {
	before := testutil.ToFloat64(FetchesTotal.WithLabelValues(ResultDecode))
	FetchesTotal.WithLabelValues(ResultDecode).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(FetchesTotal.WithLabelValues(ResultDecode)))
}
