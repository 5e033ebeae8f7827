package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
	"github.com/jerson3105/juriv2-sub007/pkg/middleware/requestid"
)

func serve(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestid.Middleware())
	router.GET("/x", handler)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-42")
	router.ServeHTTP(rec, req)
	return rec
}

func TestErrorEchoesRequestID(t *testing.T) {
	rec := serve(func(c *gin.Context) { Error(c, appErrors.ErrForbidden) })
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var envelope Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrForbidden.Code, envelope.Error.Code)
	assert.Equal(t, "req-42", envelope.Meta["request_id"])
}

func TestErrorHidesUnknownErrors(t *testing.T) {
	rec := serve(func(c *gin.Context) { Error(c, errors.New("pq: connection reset")) })
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestJSONDropsEmptyMeta(t *testing.T) {
	rec := serve(func(c *gin.Context) { JSON(c, http.StatusOK, gin.H{"ok": true}, nil, map[string]interface{}{}) })
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "meta")
}
