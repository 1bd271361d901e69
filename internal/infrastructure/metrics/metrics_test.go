package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recorders(t *testing.T) {
	m := New()

	m.RecordActivityIngested("post")
	m.RecordActivityIngested("post")
	m.RecordPartnershipFormed()
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.SetBufferSize(7)
	m.ObserveMatch("discovery", 12, 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActivitiesIngestedTotal.WithLabelValues("post")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PartnershipsFormedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MatchCacheLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MatchCacheLookupsTotal.WithLabelValues("miss")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.BufferSize))
	assert.Equal(t, 1, testutil.CollectAndCount(m.MatchDuration))
}

func TestMiddleware_RecordsRoutePatternAndErrorStatus(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(Middleware(m))
	e.GET("/api/v1/communities/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "missing")
	})
	e.GET("/ok", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	for _, path := range []string{"/api/v1/communities/abc", "/api/v1/communities/def", "/ok"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if path == "/ok" {
			require.Equal(t, http.StatusNoContent, rec.Code)
		} else {
			require.Equal(t, http.StatusNotFound, rec.Code)
		}
	}

	assert.Equal(t, 2, testutil.CollectAndCount(m.HTTPRequestDuration))
	// both ids collapse into the route pattern, with the status the error handler wrote
	assert.True(t, m.HTTPRequestDuration.DeleteLabelValues("GET", "/api/v1/communities/:id", "404"))
	assert.True(t, m.HTTPRequestDuration.DeleteLabelValues("GET", "/ok", "204"))
}

func TestMiddleware_PassesThroughErrors(t *testing.T) {
	m := New()
	e := echo.New()
	var handled error
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		handled = err
		_ = c.NoContent(http.StatusTeapot)
	}
	e.Use(Middleware(m))
	boom := errors.New("boom")
	e.GET("/boom", func(c echo.Context) error { return boom })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.ErrorIs(t, handled, boom)
}
