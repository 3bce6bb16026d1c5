package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolosopher/rps-live/internal/api"
	"github.com/yolosopher/rps-live/internal/api/middleware"
	"github.com/yolosopher/rps-live/internal/api/response"
	"github.com/yolosopher/rps-live/internal/factory"
	"github.com/yolosopher/rps-live/internal/model"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// API tests are integration tests - use production factory with real random/clock
	app, err := factory.New(context.Background(), factory.Config{})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AccountService:  app.AccountService,
		TokenService:    app.TokenService,
		MatchController: app.MatchController,
		Gateway:         app.Gateway,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	registerBody := map[string]string{
		"username": "alice",
		"password": "secret123",
	}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", registerBody, "")
	assert.Equal(t, http.StatusCreated, rr.Code)

	var registerResp response.AuthResponse
	err := json.Unmarshal(rr.Body.Bytes(), &registerResp)
	require.NoError(t, err)
	assert.Equal(t, "alice", registerResp.User.Username)
	assert.NotEmpty(t, registerResp.AccessToken)
	assert.NotEmpty(t, registerResp.RefreshToken)

	// The refresh token also lands in an http-only cookie
	cookie := refreshCookie(t, rr)
	assert.Equal(t, registerResp.RefreshToken, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	loginBody := map[string]string{
		"username": "alice",
		"password": "secret123",
	}
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", loginBody, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	err = json.Unmarshal(rr.Body.Bytes(), &loginResp)
	require.NoError(t, err)
	assert.Equal(t, registerResp.User.ID, loginResp.User.ID)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	// Username too short
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "ab",
		"password": "secret123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Password too short
	rr = ts.request(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "alice",
		"password": "short",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Duplicate username
	rr = ts.request(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "alice",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "alice",
		"password": "secret456",
	}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)

	registerUser(t, ts, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)

	auth := registerUser(t, ts, "bob")

	rr := ts.request(http.MethodGet, "/api/v1/auth/me", nil, auth.AccessToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	var meResp response.User
	err := json.Unmarshal(rr.Body.Bytes(), &meResp)
	require.NoError(t, err)
	assert.Equal(t, "bob", meResp.Username)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodDelete, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRefreshRotatesTokens(t *testing.T) {
	ts := newTestServer(t)

	auth := registerUser(t, ts, "alice")

	body := map[string]string{"refresh_token": auth.RefreshToken}
	rr := ts.request(http.MethodPost, "/api/v1/auth/refresh", body, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var refreshed response.AuthResponse
	err := json.Unmarshal(rr.Body.Bytes(), &refreshed)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, auth.RefreshToken, refreshed.RefreshToken)

	// The old refresh token is revoked by the rotation
	rr = ts.request(http.MethodPost, "/api/v1/auth/refresh", body, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	ts := newTestServer(t)

	auth := registerUser(t, ts, "alice")

	body := map[string]string{"refresh_token": auth.RefreshToken}
	rr := ts.request(http.MethodPost, "/api/v1/auth/logout", body, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// The logout response clears the cookie
	cookie := refreshCookie(t, rr)
	assert.Empty(t, cookie.Value)

	rr = ts.request(http.MethodPost, "/api/v1/auth/refresh", body, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDeleteMe(t *testing.T) {
	ts := newTestServer(t)

	auth := registerUser(t, ts, "alice")

	rr := ts.request(http.MethodDelete, "/api/v1/auth/me", nil, auth.AccessToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/auth/me", nil, auth.AccessToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Logging back in restores the account
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "alice",
		"password": "secret123",
	}, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSpectateMatch(t *testing.T) {
	ts := newTestServer(t)

	auth := registerUser(t, ts, "alice")

	// Create a match through the controller; the HTTP surface is read-only
	identity, err := ts.app.TokenService.VerifyAccess(auth.AccessToken)
	require.NoError(t, err)
	_, err = ts.app.MatchController.Connect(context.Background(), identity.UserID)
	require.NoError(t, err)
	created, err := ts.app.MatchController.Create(context.Background(), model.PlayerRef{
		ID:       identity.UserID,
		Username: identity.Username,
	})
	require.NoError(t, err)

	// Anonymous spectators can fetch the match view
	rr := ts.request(http.MethodGet, "/api/v1/matches/"+string(created.ID), nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var matchResp response.MatchResponse
	err = json.Unmarshal(rr.Body.Bytes(), &matchResp)
	require.NoError(t, err)
	assert.Equal(t, created.ID, matchResp.Match.ID)

	rr = ts.request(http.MethodGet, "/api/v1/matches/zzzz9999", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// Helper functions

func registerUser(t *testing.T, ts *testServer, username string) response.AuthResponse {
	t.Helper()

	body := map[string]string{"username": username, "password": "secret123"}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.AuthResponse
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func refreshCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == middleware.RefreshCookieName {
			return cookie
		}
	}
	t.Fatalf("no %s cookie in response", middleware.RefreshCookieName)
	return nil
}
