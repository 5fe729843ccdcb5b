package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler("operator@example.com", "hunter2", "test-secret")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.RefreshToken)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesTokenPair(t *testing.T) {
	r := newAuthRouter()

	w := postJSON(r, "/auth/login", `{"email":"operator@example.com","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])
	assert.NotEmpty(t, resp["refresh_token"])
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	r := newAuthRouter()

	w := postJSON(r, "/auth/login", `{"email":"operator@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	r := newAuthRouter()

	w := postJSON(r, "/auth/login", `{"email":"operator@example.com","password":"hunter2"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	refresh := resp["refresh_token"].(string)

	w = postJSON(r, "/auth/refresh", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	// старый refresh инвалидирован
	w = postJSON(r, "/auth/refresh", `{"refresh_token":"`+refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnavailableWithoutOperatorAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler("", "", "test-secret")
	r := gin.New()
	r.POST("/auth/login", h.Login)

	w := postJSON(r, "/auth/login", `{"email":"a@b.c","password":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
