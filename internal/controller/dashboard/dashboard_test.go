package dashboard

import (
	"context"
	"net/http"
	"os"
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

var testDB *database.DBinstanceStruct

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	auth.SetSecretKey("dashboard-test-secret")

	var err error
	var midTeardown func(context.Context, ...testcontainers.TerminateOption) error
	midTeardown, testDB, err = database.GetTestDB()
	if err != nil {
		os.Exit(1)
	}
	code := m.Run()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if midTeardown != nil {
		_ = midTeardown(ctx)
	}
	os.Exit(code)
}

func dashboardEngine() *gin.Engine {
	r := gin.New()
	q := quota.NewService(testDB.DB, events.NewMemoryBroker(), logging.Discard())
	r.GET("/dashboard", middleware.RequireAuth(testDB), NewDashboardController(testDB, q).GetDashboard)
	return r
}

func tokenOf(t *testing.T, username string) string {
	t.Helper()
	token, err := auth.GetAccessToken(t, testDB, username, database.TestSeedPassword)
	require.NoError(t, err)
	return token
}

func TestAdminDashboard(t *testing.T) {
	require.NoError(t, testDB.Create(&model.Payment{
		UserID: database.TestUserHR1.ID, Plan: model.PlanStarter, OrderID: "order_dashboard_paid",
		Amount: 49900, Currency: "INR", Status: model.PaymentPaid,
	}).Error)
	require.NoError(t, testDB.Create(&model.Payment{
		UserID: database.TestUserHR1.ID, Plan: model.PlanPro, OrderID: "order_dashboard_failed",
		Amount: 149900, Currency: "INR", Status: model.PaymentFailed,
	}).Error)

	rec := testutil.MakeRequest(nil, tokenOf(t, database.TestAdminUser.Username), dashboardEngine(), "/dashboard", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d, err := testutil.DecodeBody[AdminDashboard](rec)
	require.NoError(t, err)

	assert.Equal(t, model.RoleAdmin, d.Role)
	assert.GreaterOrEqual(t, d.Candidates, int64(3))
	assert.GreaterOrEqual(t, d.HRUsers, int64(2))
	assert.GreaterOrEqual(t, d.Companies[model.StatusVerified], int64(1))
	assert.GreaterOrEqual(t, d.Companies[model.StatusPending], int64(1))
	assert.Equal(t, int64(49900), d.PaymentsTotal)
}

func TestHRDashboard(t *testing.T) {
	hr, err := database.NewTestHR(testDB, "hr_dashboard", "Dash Co", model.StatusVerified, 7)
	require.NoError(t, err)
	require.NoError(t, testDB.Create(&model.Interview{
		HRUserID: hr.UserID, ParticipantName: "A", ParticipantEmail: "a@example.org", Status: model.InterviewScheduled,
	}).Error)
	require.NoError(t, testDB.Create(&model.Interview{
		HRUserID: hr.UserID, ParticipantName: "B", ParticipantEmail: "b@example.org", Status: model.InterviewCompleted,
	}).Error)
	for i := 0; i < RecentLimit+1; i++ {
		require.NoError(t, testDB.Create(&model.JobOpening{HRUserID: hr.UserID, Description: "opening"}).Error)
	}

	rec := testutil.MakeRequest(nil, tokenOf(t, "hr_dashboard"), dashboardEngine(), "/dashboard", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d, err := testutil.DecodeBody[HRDashboard](rec)
	require.NoError(t, err)

	assert.Equal(t, model.RoleHR, d.Role)
	require.NotNil(t, d.Usage)
	assert.Equal(t, 7, d.Usage.QuotaLeft)
	assert.Equal(t, model.StatusVerified, d.CompanyStatus)
	assert.Equal(t, InterviewCounts{Scheduled: 1, Completed: 1}, d.Interviews)
	assert.Len(t, d.RecentOpenings, RecentLimit)
}

func TestCandidateDashboard(t *testing.T) {
	cand, err := database.NewTestCandidate(testDB, "candidate_dashboard", model.EditableCandidateInfo{
		FullName: "Dash Candidate",
		Email:    "dash.candidate@example.com",
		Skills:   []string{"Go"},
	})
	require.NoError(t, err)
	require.NoError(t, testDB.Create(&model.Interview{
		HRUserID: database.TestUserHR1.ID, ParticipantName: "Dash", ParticipantEmail: "DASH.candidate@example.com",
		Status: model.InterviewScheduled,
	}).Error)

	load := func(t *testing.T) CandidateDashboard {
		t.Helper()
		rec := testutil.MakeRequest(nil, tokenOf(t, "candidate_dashboard"), dashboardEngine(), "/dashboard", http.MethodGet)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		d, err := testutil.DecodeBody[CandidateDashboard](rec)
		require.NoError(t, err)
		return d
	}

	d := load(t)
	assert.Equal(t, model.RoleCandidate, d.Role)
	assert.Equal(t, cand.Score, d.Score)
	assert.False(t, d.HasResume)
	// profile email is self-declared
	assert.Empty(t, d.Interviews)

	require.NoError(t, testDB.Model(&model.User{}).Where("id = ?", cand.UserID).Update("google_id", "g-dash").Error)
	d = load(t)
	require.Len(t, d.Interviews, 1)
	assert.Equal(t, "Dash", d.Interviews[0].ParticipantName)
}
