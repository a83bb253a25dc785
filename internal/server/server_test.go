package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
	"github.com/testcontainers/testcontainers-go"

	"talentpool-backend/internal/auth"
	"talentpool-backend/internal/cache"
	"talentpool-backend/internal/config"
	"talentpool-backend/internal/database"
	"talentpool-backend/internal/events"
	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/queue"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/referral"
	"talentpool-backend/internal/testutil"
)

var testDB *database.DBinstanceStruct

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	auth.SetSecretKey("server-test-secret")

	var err error
	var teardown func(context.Context, ...testcontainers.TerminateOption) error
	teardown, testDB, err = database.GetTestDB()
	if err != nil {
		os.Exit(1)
	}
	code := m.Run()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if teardown != nil {
		_ = teardown(ctx)
	}
	os.Exit(code)
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	log := logrus.New()
	log.SetOutput(os.Stderr)

	broker := events.NewMemoryBroker()
	memCache := cache.NewMemory()
	geo := integrations.NewGeo("", memCache)
	dispatcher := &queue.Dispatcher{Mailer: integrations.NewMailer("", "", ""), Log: logging.Discard()}
	s := &MyServer{
		Config: &config.Config{
			Port:               "0",
			AllowOrigins:       []string{"*"},
			RateLimitPerSecond: 1000,
			Payment:            config.PaymentConfig{Currency: "INR"},
		},
		DB:        testDB,
		Log:       log,
		Broker:    broker,
		Cache:     memCache,
		Blacklist: auth.NewInMemoryBlacklistStore(),
		Quota:     quota.NewService(testDB.DB, broker, logging.Discard()),
		Referral:  referral.NewService(testDB.DB, geo, logging.Discard()),
		Notifier:  queue.NewNotifier(nil, dispatcher),
		Geo:       geo,
	}

	handler, err := s.RegisterRoutes()
	require.NoError(t, err)
	return handler.(*gin.Engine)
}

func TestHealth(t *testing.T) {
	r := newTestServer(t)

	rec, body := testutil.MakeJSONRequest(nil, "", r, "/health", http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "up", body["status"])
	assert.Equal(t, "disabled", body["redis"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestPublicRoutes(t *testing.T) {
	r := newTestServer(t)

	rec := testutil.MakeRequest(nil, "", r, "/pricing", http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pricing")

	rec = testutil.MakeRequest(nil, "", r, "/api/v1/plans", http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleGating(t *testing.T) {
	r := newTestServer(t)

	candidateToken, err := auth.GetAccessToken(t, testDB, database.TestUserCandidate1.Username, database.TestSeedPassword)
	require.NoError(t, err)
	hrToken, err := auth.GetAccessToken(t, testDB, database.TestUserHR1.Username, database.TestSeedPassword)
	require.NoError(t, err)
	pendingHRToken, err := auth.GetAccessToken(t, testDB, database.TestUserHR2.Username, database.TestSeedPassword)
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		method   string
		endpoint string
		wantCode int
	}{
		{"No token", "", http.MethodGet, "/api/v1/me", http.StatusBadRequest},
		{"Me", candidateToken, http.MethodGet, "/api/v1/me", http.StatusOK},
		{"Candidate on HR route", candidateToken, http.MethodGet, "/api/v1/hr/usage", http.StatusForbidden},
		{"Candidate on admin route", candidateToken, http.MethodGet, "/api/v1/admin/admins", http.StatusForbidden},
		{"HR usage", hrToken, http.MethodGet, "/api/v1/hr/usage", http.StatusOK},
		{"HR on candidate route", hrToken, http.MethodGet, "/api/v1/candidate/myprofile", http.StatusForbidden},
		{"Pending company search", pendingHRToken, http.MethodGet, "/api/v1/hr/candidates", http.StatusForbidden},
		{"Payment without gateway", hrToken, http.MethodPost, "/api/v1/payment/order", http.StatusBadRequest},
		{"YouTube disabled", candidateToken, http.MethodGet, "/api/v1/youtube/search?q=go", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.MakeRequest(nil, tt.token, r, tt.endpoint, tt.method)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestLogoutRevokeToken(t *testing.T) {
	r := newTestServer(t)

	token, err := auth.GetAccessToken(t, testDB, database.TestUserCandidate2.Username, database.TestSeedPassword)
	require.NoError(t, err)

	rec := testutil.MakeRequest(nil, token, r, "/api/v1/auth/logout", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body := testutil.MakeJSONRequest(nil, token, r, "/api/v1/me", http.MethodGet)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token has been revoked", body["error"])
}

func TestSwaggerCoversAPIRoutes(t *testing.T) {
	r := newTestServer(t)

	raw, err := swag.ReadDoc()
	require.NoError(t, err)
	var doc struct {
		BasePath string                                `json:"basePath"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Equal(t, "/api/v1", doc.BasePath)

	param := regexp.MustCompile(`:(\w+)`)
	for _, route := range r.Routes() {
		if !strings.HasPrefix(route.Path, doc.BasePath+"/") {
			continue
		}
		path := param.ReplaceAllString(strings.TrimPrefix(route.Path, doc.BasePath), "{$1}")
		_, ok := doc.Paths[path][strings.ToLower(route.Method)]
		assert.True(t, ok, "%s %s missing from swagger doc", route.Method, path)
	}
}
