package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestReadyGate(t *testing.T) {
	s := New()

	rec := probe(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.SetReady(true)
	rec = probe(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestFailureThreshold(t *testing.T) {
	s := New()
	s.SetReady(true)
	s.Add("db", Readiness, time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	// A check stays healthy until it fails failureThreshold times in a row.
	c := s.checks[0]
	c.run(context.Background())
	c.run(context.Background())
	rec := probe(t, s.ReadyEndpoint)
	require.Equal(t, http.StatusOK, rec.Code)

	c.run(context.Background())
	rec = probe(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestRecovery(t *testing.T) {
	s := New()
	s.SetReady(true)

	healthy := false
	s.Add("db", Readiness, time.Second, func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	})

	c := s.checks[0]
	for range 3 {
		c.run(context.Background())
	}
	require.Equal(t, http.StatusServiceUnavailable, probe(t, s.ReadyEndpoint).Code)

	healthy = true
	c.run(context.Background())
	assert.Equal(t, http.StatusOK, probe(t, s.ReadyEndpoint).Code)
}

func TestLivenessIndependentOfReadyGate(t *testing.T) {
	s := New()
	s.Add("goroutines", Liveness, time.Second, GoroutineCountCheck(1_000_000))

	c := s.checks[0]
	c.run(context.Background())
	assert.Equal(t, http.StatusOK, probe(t, s.LiveEndpoint).Code)
}
