package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestError_IsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("upgrade: %w", InvalidTransition("upgrade", "ENTERPRISE does not outrank STARTER"))

	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindInvalidTransition, KindOf(err))
}

func TestFromContext_DeadlineBecomesTimeout(t *testing.T) {
	err := FromContext("store.get", context.DeadlineExceeded)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(err))

	plain := FromContext("store.get", errors.New("boom"))
	assert.Equal(t, KindInternal, KindOf(plain))

	kept := NotFound("catalog", "plan not found")
	assert.Same(t, kept, FromContext("x", kept))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("op", "missing"), http.StatusNotFound},
		{InvalidTransition("op", "no"), http.StatusBadRequest},
		{Gateway("op", errors.New("card declined")), http.StatusBadRequest},
		{New(KindForbidden, "op", "no"), http.StatusForbidden},
		{New(KindQuotaExceeded, "op", "full"), http.StatusForbidden},
		{New(KindSubscriptionRequired, "op", "pay"), http.StatusPaymentRequired},
		{New(KindUnauthenticated, "op", "who"), http.StatusUnauthorized},
		{errors.New("raw"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestWrite_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Write(c, errors.New("pq: connection refused to 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body["error"])
	assert.Equal(t, "internal error", body["message"])
}

func TestWrite_IncludesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Write(c, New(KindQuotaExceeded, "quota", "properties limit reached").
		WithDetails(map[string]any{"resource": "properties", "current": 1000, "limit": 1000}))

	assert.Equal(t, http.StatusForbidden, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "quota_exceeded", body["error"])
	assert.Equal(t, "properties", body["resource"])
	assert.Equal(t, float64(1000), body["limit"])
}
