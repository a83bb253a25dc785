package company

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
	"talentpool-backend/internal/middleware"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/testutil"
)

var testDB *database.DBinstanceStruct

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	auth.SetSecretKey("company-test-secret")

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

func companyEngine(bypass bool) *gin.Engine {
	r := gin.New()
	cc := NewCompanyController(testDB, bypass)
	r.PATCH("/hr/company", middleware.RequireAuth(testDB), middleware.CheckRole(model.RoleHR), cc.EditMyCompany)
	r.GET("/company/:company_id", middleware.RequireAuth(testDB), cc.GetCompanyByID)
	return r
}

func tokenOf(t *testing.T, username string) string {
	t.Helper()
	token, err := auth.GetAccessToken(t, testDB, username, database.TestSeedPassword)
	require.NoError(t, err)
	return token
}

func TestEditMyCompany_NonHRForbidden(t *testing.T) {
	rec, resp := testutil.MakeJSONRequest(gin.H{"name": "Malicious Update"}, tokenOf(t, database.TestUserCandidate1.Username), companyEngine(false), "/hr/company", http.MethodPatch)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, resp["error"], "permission")
}

func TestEditMyCompany_CreatePending(t *testing.T) {
	_, err := database.NewTestHR(testDB, "hr_new_company", "", "", 10)
	require.NoError(t, err)

	rec, resp := testutil.MakeJSONRequest(gin.H{"name": "Freshly Made", "industry": "Retail"}, tokenOf(t, "hr_new_company"), companyEngine(false), "/hr/company", http.MethodPatch)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Freshly Made", resp["name"])
	assert.Equal(t, model.StatusPending, resp["verified_status"])
}

func TestEditMyCompany_CreateWithBypass(t *testing.T) {
	_, err := database.NewTestHR(testDB, "hr_bypass_company", "", "", 10)
	require.NoError(t, err)

	rec, resp := testutil.MakeJSONRequest(gin.H{"name": "Trusted Co"}, tokenOf(t, "hr_bypass_company"), companyEngine(true), "/hr/company", http.MethodPatch)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusVerified, resp["verified_status"])
}

func TestEditMyCompany_CreateNeedName(t *testing.T) {
	_, err := database.NewTestHR(testDB, "hr_nameless_company", "", "", 10)
	require.NoError(t, err)

	rec, resp := testutil.MakeJSONRequest(gin.H{"industry": "Retail"}, tokenOf(t, "hr_nameless_company"), companyEngine(false), "/hr/company", http.MethodPatch)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp["error"], "name is required")
}

func TestEditMyCompany_UpdateKeepStatus(t *testing.T) {
	hr, err := database.NewTestHR(testDB, "hr_update_company", "Old Name", model.StatusVerified, 10)
	require.NoError(t, err)

	body := gin.H{"overview": "We build things", "website": "https://example.com"}
	rec, resp := testutil.MakeJSONRequest(body, tokenOf(t, "hr_update_company"), companyEngine(false), "/hr/company", http.MethodPatch)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Old Name", resp["name"])
	assert.Equal(t, "We build things", resp["overview"])
	assert.Equal(t, model.StatusVerified, resp["verified_status"])
	assert.Equal(t, hr.Company.ID.String(), resp["id"])
}

func TestEditMyCompany_UnknownField(t *testing.T) {
	rec, _ := testutil.MakeJSONRequest(gin.H{"verified_status": model.StatusVerified}, tokenOf(t, database.TestUserHR2.Username), companyEngine(false), "/hr/company", http.MethodPatch)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var company model.Company
	require.NoError(t, testDB.First(&company, "hr_user_id = ?", database.TestUserHR2.ID).Error)
	assert.Equal(t, model.StatusPending, company.VerifiedStatus)
}

func TestGetCompanyByID(t *testing.T) {
	token := tokenOf(t, database.TestUserCandidate1.Username)

	rec, resp := testutil.MakeJSONRequest(nil, token, companyEngine(false), "/company/"+database.TestCompany1.ID.String(), http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TechNova", resp["name"])

	for _, id := range []string{"00000000-0000-0000-0000-000000000000", "abc"} {
		rec, resp = testutil.MakeJSONRequest(nil, token, companyEngine(false), "/company/"+id, http.MethodGet)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Company not found", resp["error"])
	}
}
