package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, household, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if household != "" {
		req.Header.Set(HouseholdHeader, household)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHousehold(t *testing.T) {
	r := gin.New()
	r.Use(Household())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, HouseholdID(c)) })

	rec := serve(r, http.MethodGet, "/x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "HOUSEHOLD_REQUIRED")

	rec = serve(r, http.MethodGet, "/x", " house-1 ", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "house-1", rec.Body.String())
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	r := gin.New()
	r.Use(Household(), d.Middleware())
	r.POST("/cook", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/cook", "h1", `{"a":1}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/cook", "h1", `{"a":1}`).Code)

	// 不同家庭或不同內容不受影響
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/cook", "h2", `{"a":1}`).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/cook", "h1", `{"a":2}`).Code)
}

func TestDeduplicator_FailedRequestCanRetry(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	status := http.StatusConflict
	r := gin.New()
	r.Use(Household(), d.Middleware())
	r.POST("/cook", func(c *gin.Context) { c.Status(status) })

	assert.Equal(t, http.StatusConflict, serve(r, http.MethodPost, "/cook", "h1", `{"a":1}`).Code)

	status = http.StatusOK
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/cook", "h1", `{"a":1}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/cook", "h1", `{"a":1}`).Code)
}

func TestDeduplicator_WindowExpires(t *testing.T) {
	now := time.Unix(0, 0)
	d := NewDeduplicator(time.Second)
	d.now = func() time.Time { return now }

	assert.False(t, d.Seen("k"))
	assert.True(t, d.Seen("k"))
	now = now.Add(2 * time.Second)
	assert.False(t, d.Seen("k"))
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(500 * time.Millisecond)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(8))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := serve(r, http.MethodPost, "/x", "", strings.Repeat("a", 32))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = serve(r, http.MethodPost, "/x", "", "tiny")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := serve(r, http.MethodGet, "/panic", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
