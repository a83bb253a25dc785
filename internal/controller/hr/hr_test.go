package hr

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"talentpool-backend/internal/auth"
	"talentpool-backend/internal/database"
	"talentpool-backend/internal/events"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/middleware"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/testutil"
)

var (
	testDB     *database.DBinstanceStruct
	testBroker *events.MemoryBroker
	testQuota  *quota.Service
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	auth.SetSecretKey("hr-test-secret")

	var err error
	var midTeardown func(context.Context, ...testcontainers.TerminateOption) error
	midTeardown, testDB, err = database.GetTestDB()
	if err != nil {
		os.Exit(1)
	}
	testBroker = events.NewMemoryBroker()
	testQuota = quota.NewService(testDB.DB, testBroker, logging.Discard())

	code := m.Run()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if midTeardown != nil {
		_ = midTeardown(ctx)
	}
	os.Exit(code)
}

func hrEngine() *gin.Engine {
	r := gin.New()
	hc := NewHRController(testDB, testQuota, testBroker, logging.Discard())
	group := r.Group("/hr", middleware.RequireAuth(testDB), middleware.CheckRole(model.RoleHR))
	group.GET("/myprofile", hc.GetMyHRProfile)
	group.PATCH("/profile", hc.EditHRProfile)
	group.GET("/usage", hc.GetUsage)
	group.GET("/usage/stream", hc.StreamUsage)

	pool := group.Group("", middleware.RequireVerifiedCompany(testDB))
	pool.GET("/candidates", hc.SearchCandidates)
	pool.GET("/candidates/:email", hc.GetCandidateDetail)
	return r
}

func tokenOf(t *testing.T, username string) string {
	t.Helper()
	token, err := auth.GetAccessToken(t, testDB, username, database.TestSeedPassword)
	require.NoError(t, err)
	return token
}

func newVerifiedHR(t *testing.T, username string, quotaLeft int) (model.HRUser, string) {
	t.Helper()
	hr, err := database.NewTestHR(testDB, username, username+" Inc", model.StatusVerified, quotaLeft)
	require.NoError(t, err)
	return hr, tokenOf(t, username)
}

func TestGetMyHRProfile(t *testing.T) {
	rec, resp := testutil.MakeJSONRequest(nil, tokenOf(t, database.TestUserHR1.Username), hrEngine(), "/hr/myprofile", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	company := resp["company"].(map[string]interface{})
	assert.Equal(t, "TechNova", company["name"])
	usage := resp["usage"].(map[string]interface{})
	assert.Equal(t, model.PlanFree, usage["plan"])
}

func TestGetMyHRProfile_WrongRole(t *testing.T) {
	rec, _ := testutil.MakeJSONRequest(nil, tokenOf(t, database.TestUserCandidate1.Username), hrEngine(), "/hr/myprofile", http.MethodGet)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEditHRProfile(t *testing.T) {
	hr, token := newVerifiedHR(t, "hr_edit_profile", 5)

	body := gin.H{"position": "Head of Talent", "tel": "0811111111"}
	rec, resp := testutil.MakeJSONRequest(body, token, hrEngine(), "/hr/profile", http.MethodPatch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Head of Talent", resp["position"])
	assert.Equal(t, "hr_edit_profile", resp["full_name"])

	var saved model.HRUser
	require.NoError(t, testDB.Preload("User").First(&saved, "user_id = ?", hr.UserID).Error)
	assert.Equal(t, "Head of Talent", saved.Position)
	require.NotNil(t, saved.User.Tel)
	assert.Equal(t, "0811111111", *saved.User.Tel)

	rec, _ = testutil.MakeJSONRequest(gin.H{"company": "x"}, token, hrEngine(), "/hr/profile", http.MethodPatch)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchCandidates(t *testing.T) {
	hr, token := newVerifiedHR(t, "hr_searcher", 5)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"Skill", "skills=go", []string{"Alice Nguyen"}},
		{"Skill with typo", "skills=kubernetis", []string{"Alice Nguyen"}},
		{"Every skill required", "skills=react,python", []string{}},
		{"Free text", "q=forecasting", []string{"Chai Wong"}},
		{"Title", "title=frontend", []string{"Bob Somsak"}},
		{"Min experience", "skills=sql&min_exp=5", []string{"Chai Wong"}},
		{"Min experience exclude", "skills=sql&min_exp=7", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.MakeRequest(nil, token, hrEngine(), "/hr/candidates?"+tt.query, http.MethodGet)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			got, err := testutil.DecodeBody[SearchResponse](rec)
			require.NoError(t, err)
			names := []string{}
			for _, c := range got.Candidates {
				names = append(names, c.FullName)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, len(tt.want), got.Count)
		})
	}

	usage, err := testQuota.Snapshot(context.Background(), hr.UserID)
	require.NoError(t, err)
	assert.Equal(t, 5, usage.MatchesFound)
	assert.Equal(t, 5, usage.QuotaLeft)
}

func TestSearchCandidates_SummaryOnly(t *testing.T) {
	rec, resp := testutil.MakeJSONRequest(nil, tokenOf(t, database.TestUserHR1.Username), hrEngine(), "/hr/candidates?skills=go", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)

	candidates := resp["candidates"].([]interface{})
	require.NotEmpty(t, candidates)
	first := candidates[0].(map[string]interface{})
	for _, hidden := range []string{"email", "phone", "resume_url", "parsed_text"} {
		assert.NotContains(t, first, hidden)
	}
	assert.Contains(t, first, "match_score")
}

func TestSearchCandidates_BannedHidden(t *testing.T) {
	cand, err := database.NewTestCandidate(testDB, "banned_rustacean", model.EditableCandidateInfo{
		FullName: "Banned Rustacean",
		Email:    "banned@example.com",
		Skills:   []string{"Rust"},
	})
	require.NoError(t, err)
	punishment := model.PunishmentStruct{PunishmentType: model.BanPunishment}
	require.NoError(t, testDB.Create(&punishment).Error)
	require.NoError(t, testDB.Model(&model.User{}).Where("id = ?", cand.UserID).Update("punishment_id", punishment.ID).Error)

	rec := testutil.MakeRequest(nil, tokenOf(t, database.TestUserHR1.Username), hrEngine(), "/hr/candidates?skills=rust", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := testutil.DecodeBody[SearchResponse](rec)
	require.NoError(t, err)
	assert.Zero(t, got.Count)
}

func TestSearchCandidates_Rejected(t *testing.T) {
	rec, _ := testutil.MakeJSONRequest(nil, tokenOf(t, database.TestUserHR2.Username), hrEngine(), "/hr/candidates?skills=go", http.MethodGet)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := testutil.MakeJSONRequest(nil, tokenOf(t, database.TestUserHR1.Username), hrEngine(), "/hr/candidates?min_exp=abc", http.MethodGet)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp["error"], "min_exp must be an integer")
}

func TestGetCandidateDetail_Metered(t *testing.T) {
	hr, token := newVerifiedHR(t, "hr_viewer", 1)

	rec := testutil.MakeRequest(nil, token, hrEngine(), "/hr/candidates/ALICE@example.com", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first, err := testutil.DecodeBody[CandidateDetailResponse](rec)
	require.NoError(t, err)
	assert.True(t, first.Charged)
	assert.Equal(t, 0, first.QuotaLeft)
	assert.Equal(t, "0100000001", first.Candidate.Phone)

	// same candidate again is free
	rec = testutil.MakeRequest(nil, token, hrEngine(), "/hr/candidates/alice@example.com", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	again, err := testutil.DecodeBody[CandidateDetailResponse](rec)
	require.NoError(t, err)
	assert.False(t, again.Charged)

	rec, resp := testutil.MakeJSONRequest(nil, token, hrEngine(), "/hr/candidates/bob@example.com", http.MethodGet)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, resp["error"], "Quota exhausted")

	usage, err := testQuota.Snapshot(context.Background(), hr.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.QuotaLeft)
	assert.Equal(t, 1, usage.CandidatesViewed)
}

func TestGetCandidateDetail_NotFound(t *testing.T) {
	rec, resp := testutil.MakeJSONRequest(nil, tokenOf(t, database.TestUserHR1.Username), hrEngine(), "/hr/candidates/nobody@example.com", http.MethodGet)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Candidate not found", resp["error"])
}

func TestGetUsage(t *testing.T) {
	_, token := newVerifiedHR(t, "hr_usage_reader", 7)

	rec := testutil.MakeRequest(nil, token, hrEngine(), "/hr/usage", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	usage, err := testutil.DecodeBody[model.UsageMetrics](rec)
	require.NoError(t, err)
	assert.Equal(t, 7, usage.QuotaLeft)
	assert.Equal(t, model.PeriodStart(time.Now()), usage.PeriodStart.UTC())
}

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestStreamUsage(t *testing.T) {
	hr, token := newVerifiedHR(t, "hr_streamer", 3)

	srv := httptest.NewServer(hrEngine())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/hr/usage/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	name, data := readEvent(t, reader)
	assert.Equal(t, "usage", name)
	assert.Contains(t, data, events.UsageSnapshot)

	require.Eventually(t, func() bool { return testBroker.Subscribers(hr.UserID) == 1 }, 5*time.Second, 20*time.Millisecond)

	_, err = testQuota.ChargeView(context.Background(), hr.UserID, database.TestCandidate2.UserID)
	require.NoError(t, err)

	name, data = readEvent(t, reader)
	assert.Equal(t, "usage", name)
	assert.Contains(t, data, events.UsageViewed)
	assert.Contains(t, data, `"quota_left":2`)

	cancel()
	require.Eventually(t, func() bool { return testBroker.Subscribers(hr.UserID) == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestStreamUsage_OutlivesWriteTimeout(t *testing.T) {
	_, token := newVerifiedHR(t, "hr_long_streamer", 3)

	interval := KeepAliveInterval
	KeepAliveInterval = 100 * time.Millisecond
	t.Cleanup(func() { KeepAliveInterval = interval })

	srv := httptest.NewUnstartedServer(hrEngine())
	srv.Config.WriteTimeout = 300 * time.Millisecond
	srv.Start()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/hr/usage/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	require.Equal(t, "usage", name)

	deadline := time.Now().Add(3 * srv.Config.WriteTimeout)
	for time.Now().Before(deadline) {
		name, _ = readEvent(t, reader)
		assert.Equal(t, "ping", name)
	}
}

func TestSearchCandidates_TokenlessSkill(t *testing.T) {
	_, token := newVerifiedHR(t, "hr_blank_skill", 5)
	_, err := database.NewTestCandidate(testDB, "skill_less", model.EditableCandidateInfo{
		FullName: "Sam Skilless",
		Email:    "sam.skilless@example.com",
		JobTitle: "Lighthouse Keeper",
	})
	require.NoError(t, err)

	for _, query := range []string{"title=lighthouse", "title=lighthouse&skills=--", "title=lighthouse&skills=%20,%23"} {
		rec := testutil.MakeRequest(nil, token, hrEngine(), "/hr/candidates?"+query, http.MethodGet)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got, err := testutil.DecodeBody[SearchResponse](rec)
		require.NoError(t, err)
		require.Len(t, got.Candidates, 1, query)
		assert.Equal(t, "Sam Skilless", got.Candidates[0].FullName)
	}
}
