package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticValidator map[string]uuid.UUID

func (v staticValidator) Validate(token string) (uuid.UUID, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("unknown token")
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestBearerAuth(t *testing.T) {
	agent := uuid.New()
	other := uuid.New()

	r := gin.New()
	r.POST("/avatars/:id", BearerAuth(staticValidator{"good": agent}, "id"), func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(AgentIDKey).(uuid.UUID).String())
	})

	cases := []struct {
		name   string
		header string
		target uuid.UUID
		status int
	}{
		{"без токена", "", agent, http.StatusUnauthorized},
		{"не bearer", "Basic good", agent, http.StatusUnauthorized},
		{"чужой токен", "Bearer bad", agent, http.StatusUnauthorized},
		{"другой аватар", "Bearer good", other, http.StatusForbidden},
		{"успех", "Bearer good", agent, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/avatars/"+tc.target.String(), nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, agent.String(), w.Body.String())
			}
		})
	}
}

func TestPrometheusMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMiddleware("test", reg, reg)

	r := gin.New()
	r.Use(pm.Handler())
	pm.RegisterMetricsEndpoint(r)
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/fail", "404")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "test_http_request_errors_total"))
}

func TestRequestLogger_SetsTraceID(t *testing.T) {
	r := gin.New()
	r.Use(NewRequestLogger(nil).Handler())
	r.GET("/ping", func(c *gin.Context) {
		_, ok := c.Get("trace_id")
		assert.True(t, ok)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
}
