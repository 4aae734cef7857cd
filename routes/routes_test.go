package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendeploy/compute-deployer/handlers"
	"github.com/pendeploy/compute-deployer/metrics"
	"github.com/pendeploy/compute-deployer/middleware"
	"github.com/pendeploy/compute-deployer/models"
	"github.com/pendeploy/compute-deployer/services"
	"github.com/pendeploy/compute-deployer/services/fake"
)

func newTestRouter(t *testing.T, auth middleware.AuthConfig) (*gin.Engine, *fake.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := fake.NewEngine()
	m := metrics.New()
	svc := services.NewDeploymentService(engine, services.Settings{
		ProjectName:    "nextjs-gcp-compute",
		StackName:      "dev",
		DefaultProject: "env-project",
	}, services.WithMetrics(m))
	return SetupRouter(Dependencies{
		Deployments:    handlers.NewDeploymentHandler(svc, nil, nil),
		Metrics:        m,
		Auth:           auth,
		AllowedOrigins: []string{"*"},
		Version:        "test",
	}), engine
}

func request(r http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, middleware.AuthConfig{})
	for _, path := range []string{"/", "/health"} {
		w := request(r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","service":"compute-deployer","version":"test"}`, w.Body.String())
	}
}

func TestDeployRoute(t *testing.T) {
	r, engine := newTestRouter(t, middleware.AuthConfig{})

	w := request(r, http.MethodPost, "/api/deploy", `{"instanceName":"web-1"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, engine.Calls())

	w = request(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `compute_deployer_deployments_total{result="succeeded"} 1`)
}

func TestAuthProtectsAPIOnly(t *testing.T) {
	r, engine := newTestRouter(t, middleware.AuthConfig{JWTSecret: "secret"})

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/metrics", "", nil).Code)

	w := request(r, http.MethodPost, "/api/deploy", `{"instanceName":"web-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, engine.Calls())

	viewer, _, err := services.GenerateToken("secret", "dashboard", models.RoleViewer, time.Hour)
	require.NoError(t, err)
	w = request(r, http.MethodPost, "/api/deploy", `{"instanceName":"web-1"}`,
		http.Header{"Authorization": {"Bearer " + viewer}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// viewers may read history; it is disabled here
	w = request(r, http.MethodGet, "/api/deployments", "", http.Header{"Authorization": {"Bearer " + viewer}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	deployer, _, err := services.GenerateToken("secret", "ci", models.RoleDeployer, time.Hour)
	require.NoError(t, err)
	w = request(r, http.MethodPost, "/api/deploy", `{"instanceName":"web-1"}`,
		http.Header{"Authorization": {"Bearer " + deployer}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	r, _ := newTestRouter(t, middleware.AuthConfig{})
	w := request(r, http.MethodOptions, "/api/deploy", "", http.Header{
		"Origin":                        {"http://localhost:3000"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfig(t *testing.T) {
	cfg := corsConfig([]string{"https://app.example.com"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)

	assert.True(t, corsConfig(nil).AllowAllOrigins)
}
