package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cassation-api/internal/auth"
	"cassation-api/internal/domain"
	"cassation-api/internal/metrics"
	"cassation-api/internal/repository/sqlite"
	"cassation-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, decisions ...domain.Decision) *gin.Engine {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	decisionRepo := sqlite.NewDecisionRepository(db)
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, decisionRepo.Init(ctx))
	_, err = decisionRepo.InsertNew(ctx, decisions)
	require.NoError(t, err)

	tokens := auth.NewTokenManager("test-secret", time.Minute, time.Hour)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	reg := prometheus.NewRegistry()

	router := gin.New()
	NewHandler(
		service.NewUserService(userRepo, tokens),
		service.NewDecisionService(decisionRepo),
		logger,
		metrics.NewCollector(reg),
		reg,
	).RegisterRoutes(router)
	return router
}

func do(router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func registerAndLogin(t *testing.T, router *gin.Engine) LoginUserResponse {
	t.Helper()
	w := do(router, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "secret1",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(router, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email": "alice@example.com", "password": "secret1",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[LoginResponse](t, w).User
}

func TestRegister(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "secret1",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[RegisterResponse](t, w)
	assert.Equal(t, "User created", resp.Message)
	assert.Equal(t, UserResponse{Username: "alice", Email: "alice@example.com"}, resp.User)
	assert.NotContains(t, w.Body.String(), "password")

	w = do(router, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "secret1",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_Invalid(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodPost, "/api/v1/auth/register", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "short",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/v1/auth/register", gin.H{"username": "alice"}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "registerRequest")
}

func TestLogin_WrongCredentials(t *testing.T) {
	router := setupRouter(t)
	registerAndLogin(t, router)

	w := do(router, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email": "alice@example.com", "password": "nope-nope",
	}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Wrong credentials"}`, w.Body.String())
}

func TestLogin_FailuresShareOneResponse(t *testing.T) {
	router := setupRouter(t)
	registerAndLogin(t, router)

	attempts := map[string]gin.H{
		"wrong password":             {"email": "alice@example.com", "password": "nope-nope"},
		"empty password":             {"email": "alice@example.com", "password": ""},
		"missing password":           {"email": "alice@example.com"},
		"unknown email":              {"email": "bob@example.com", "password": "secret1"},
		"unknown email, no password": {"email": "bob@example.com", "password": ""},
		"empty body":                 {},
	}
	for name, body := range attempts {
		t.Run(name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/v1/auth/login", body, "")
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"Wrong credentials"}`, w.Body.String())
		})
	}
}

func TestMeAndRefresh(t *testing.T) {
	router := setupRouter(t)
	user := registerAndLogin(t, router)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)

	w := do(router, http.MethodGet, "/api/v1/auth/me", nil, user.Access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":1}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(router, http.MethodGet, "/api/v1/auth/me", nil, user.Refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodPost, "/api/v1/auth/token/refresh", nil, user.Refresh)
	require.Equal(t, http.StatusOK, w.Code)
	access := decode[map[string]string](t, w)["access"]
	require.NotEmpty(t, access)

	w = do(router, http.MethodGet, "/api/v1/auth/me", nil, access)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, "/api/v1/auth/token/refresh", nil, user.Access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func sampleDecisions() []domain.Decision {
	return []domain.Decision{
		{ID: "JURITEXT01", Title: "Arrêt licenciement", Formation: "CHAMBRE_SOCIALE", Content: "licenciement abusif"},
		{ID: "JURITEXT02", Title: "Arrêt bail", Formation: "CHAMBRE_CIVILE_3", Content: "bail commercial"},
		{ID: "JURITEXT03", Title: "Arrêt licenciement économique", Formation: "CHAMBRE_SOCIALE", Content: "motif économique du licenciement"},
	}
}

func TestListDecisions(t *testing.T) {
	router := setupRouter(t, sampleDecisions()...)

	w := do(router, http.MethodGet, "/api/v1/decisions/?per_page=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"data": [
			{"id":"JURITEXT01","title":"Arrêt licenciement","formation":"CHAMBRE_SOCIALE"},
			{"id":"JURITEXT02","title":"Arrêt bail","formation":"CHAMBRE_CIVILE_3"}
		],
		"meta": {"page":1,"pages":2,"total_count":3,"prev_page":null,"next_page":2,"has_next":true,"has_prev":false}
	}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/v1/decisions?formation=CHAMBRE_SOCIALE", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[DecisionListResponse](t, w)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 2, resp.Meta.TotalCount)
}

func TestListDecisions_InvalidPaging(t *testing.T) {
	router := setupRouter(t, sampleDecisions()...)

	for _, query := range []string{"page=0", "page=abc", "per_page=0", "per_page=101", "page=-2"} {
		w := do(router, http.MethodGet, "/api/v1/decisions/?"+query, nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestListDecisions_PastTheEnd(t *testing.T) {
	router := setupRouter(t, sampleDecisions()...)

	w := do(router, http.MethodGet, "/api/v1/decisions/?page=7", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[DecisionListResponse](t, w)
	assert.Empty(t, resp.Data)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, 3, resp.Meta.TotalCount)
}

func TestGetDecision(t *testing.T) {
	router := setupRouter(t, sampleDecisions()...)

	w := do(router, http.MethodGet, "/api/v1/decisions/JURITEXT02", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"JURITEXT02","title":"Arrêt bail","formation":"CHAMBRE_CIVILE_3","content":"bail commercial"}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/v1/decisions/UNKNOWN", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Item not found"}`, w.Body.String())
}

func TestSearchDecisions(t *testing.T) {
	router := setupRouter(t, sampleDecisions()...)

	w := do(router, http.MethodGet, "/api/v1/decisions/search", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	for _, query := range []string{"q=", "q=%20%20", "q=&page=abc", "q=&per_page=0"} {
		w = do(router, http.MethodGet, "/api/v1/decisions/search?"+query, nil, "")
		require.Equal(t, http.StatusOK, w.Code, query)
		assert.JSONEq(t, `{"data":[]}`, w.Body.String(), query)
	}

	w = do(router, http.MethodGet, "/api/v1/decisions/search?q=licenciement", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[SearchResponse](t, w)
	require.Len(t, resp.Data, 2)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.TotalCount)
	assert.Equal(t, 2, resp.Data[0].Score)

	w = do(router, http.MethodGet, "/api/v1/decisions/search?q=licenciement&per_page=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "cassation_http_requests_total"))
}

func TestCORSPreflight(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodOptions, "/api/v1/decisions/", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
