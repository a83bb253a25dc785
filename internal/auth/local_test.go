package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/referral"
	"talentpool-backend/internal/utilities"
)

var testDB *database.DBinstanceStruct
var testTeardown func(context.Context, ...testcontainers.TerminateOption) error

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	SetSecretKey("auth-test-secret")

	var err error
	testTeardown, testDB, err = database.GetTestDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start test db: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := testTeardown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "teardown error: %v\n", err)
	}
	os.Exit(code)
}

// Helper: validate access token in response and return claims.
func assertValidAccessToken(t *testing.T, resp map[string]interface{}) *jwt.RegisteredClaims {
	t.Helper()
	tokenStr, ok := resp["access_token"].(string)
	require.True(t, ok, "access_token not a string")
	token, err := ValidatedToken(tokenStr)
	require.NoError(t, err)
	assert.True(t, token.Valid)
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	require.True(t, ok, "claims type mismatch")
	assert.NotEmpty(t, claims.Subject, "token subject empty")
	assert.Equal(t, JwtIssuer, claims.Issuer)
	return claims
}

func responseUserID(t *testing.T, resp map[string]interface{}) string {
	t.Helper()
	uMap, ok := resp["user"].(map[string]interface{})
	require.True(t, ok, "user object missing")
	id, _ := uMap["id"].(string)
	return id
}

func TestRegisterCandidate(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)

	payload := map[string]string{
		"username": "test_candidate_user",
		"password": "password123",
		"role":     "candidate",
		"email":    "new.candidate@example.com",
		"name":     "New Candidate",
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalRegisterHandler, "/register", http.MethodPost, payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code, "unexpected status, body: %s", rec.Body.String())

	claims := assertValidAccessToken(t, resp)
	assert.Equal(t, responseUserID(t, resp), claims.Subject)

	var profile model.CandidateProfile
	require.NoError(t, testDB.Preload("User").First(&profile, "user_id = ?", claims.Subject).Error)
	assert.Equal(t, model.RoleCandidate, profile.User.Role)
	assert.Equal(t, "New Candidate", profile.FullName)
	assert.Equal(t, "new.candidate@example.com", profile.Email)
	assert.Equal(t, 20, profile.Score)
}

func TestRegisterHR(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)

	payload := map[string]string{
		"username": "test_hr_user",
		"password": "hrPass12345",
		"role":     "hr",
		"name":     "Hana Recruiter",
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalRegisterHandler, "/register", http.MethodPost, payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code, "unexpected status, body: %s", rec.Body.String())

	claims := assertValidAccessToken(t, resp)
	assert.Equal(t, responseUserID(t, resp), claims.Subject)

	var usage model.UsageMetrics
	require.NoError(t, testDB.First(&usage, "hr_user_id = ?", claims.Subject).Error)
	assert.Equal(t, model.PlanFree, usage.Plan)
	free, _ := model.PlanByName(model.PlanFree)
	assert.Equal(t, free.Quota, usage.QuotaLeft)
	assert.Equal(t, 0, usage.CandidatesViewed)
}

func TestRegisterWithReferral(t *testing.T) {
	ref := referral.NewService(testDB.DB, nil, nil)
	referrer := database.TestUserCandidate2
	code, err := ref.EnsureCode(context.Background(), &referrer)
	require.NoError(t, err)

	visit, err := ref.RecordVisit(context.Background(), code, "", "")
	require.NoError(t, err)

	handler := NewLocalAuthHandler(testDB, ref)
	payload := map[string]string{
		"username":      "referred_candidate",
		"password":      "password123",
		"role":          "candidate",
		"referral_code": code,
		"visitor_id":    visit.VisitorID,
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalRegisterHandler, "/register", http.MethodPost, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var stored model.Visitor
	require.NoError(t, testDB.First(&stored, "id = ?", visit.ID).Error)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, responseUserID(t, resp), stored.UserID.String())
	assert.NotNil(t, stored.SignupAt)

	t.Run("Unknown code does not block registration", func(t *testing.T) {
		payload := map[string]string{
			"username":      "unknown_code_user",
			"password":      "password123",
			"role":          "hr",
			"referral_code": "NOTACODE",
		}
		rec, _, err := utilities.SimulateAPICall(handler.LocalRegisterHandler, "/register", http.MethodPost, payload)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})
}

func TestRegisterPasswordTooShort(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)

	payload := map[string]string{
		"username": "short_pwd_user",
		"password": "1234567", // 7 chars
		"role":     "candidate",
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalRegisterHandler, "/register", http.MethodPost, payload)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	errMsg, _ := resp["error"].(string)
	assert.Contains(t, errMsg, "Password should longer or equal to 8 characters")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)

	payload := map[string]string{
		"username": database.TestUserCandidate1.Username,
		"password": "password123",
		"role":     "candidate",
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalRegisterHandler, "/register", http.MethodPost, payload)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	errMsg, _ := resp["error"].(string)
	assert.Equal(t, "Username already exist", errMsg)
}

func TestRegisterInvalidRole(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)

	payload := map[string]string{
		"username": "invalid_role_user",
		"password": "password123",
		"role":     "admin", // not allowed
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalRegisterHandler, "/register", http.MethodPost, payload)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	errMsg, _ := resp["error"].(string)
	assert.Contains(t, errMsg, "Only 'candidate' or 'hr'")
}

func TestLoginCandidateSuccess(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)
	payload := map[string]string{
		"username": database.TestUserCandidate1.Username,
		"password": database.TestSeedPassword,
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalLoginHandler, "/login", http.MethodPost, payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	claims := assertValidAccessToken(t, resp)
	assert.Equal(t, database.TestUserCandidate1.ID.String(), claims.Subject)
	uMap := resp["user"].(map[string]interface{})
	assert.Equal(t, database.TestCandidate1.FullName, uMap["full_name"])
}

func TestLoginHRSuccess(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)
	payload := map[string]string{
		"username": database.TestUserHR1.Username,
		"password": database.TestSeedPassword,
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalLoginHandler, "/login", http.MethodPost, payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	claims := assertValidAccessToken(t, resp)
	assert.Equal(t, responseUserID(t, resp), claims.Subject)
	uMap := resp["user"].(map[string]interface{})
	assert.NotNil(t, uMap["company"])
	assert.NotNil(t, uMap["usage"])
}

func TestLoginAdminSuccess(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)
	payload := map[string]string{
		"username": database.TestAdminUser.Username,
		"password": database.TestSeedPassword,
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalLoginHandler, "/login", http.MethodPost, payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	claims := assertValidAccessToken(t, resp)
	assert.Equal(t, database.TestAdminUser.ID.String(), claims.Subject)
	uMap := resp["user"].(map[string]interface{})
	assert.Equal(t, model.RoleAdmin, uMap["role"])
}

func TestLoginLiftExpiredPunishment(t *testing.T) {
	cand, err := database.NewTestCandidate(testDB, "expired_ban_user", model.EditableCandidateInfo{FullName: "Expired Ban"})
	require.NoError(t, err)

	at := time.Now().Add(-48 * time.Hour)
	end := time.Now().Add(-time.Hour)
	punishment := model.PunishmentStruct{PunishmentType: model.BanPunishment, PunishAt: &at, PunishEnd: &end}
	require.NoError(t, testDB.Create(&punishment).Error)
	require.NoError(t, testDB.Model(&model.User{}).Where("id = ?", cand.UserID).Update("punishment_id", punishment.ID).Error)

	handler := NewLocalAuthHandler(testDB, nil)
	rec, _, err := utilities.SimulateAPICall(handler.LocalLoginHandler, "/login", http.MethodPost, map[string]string{
		"username": "expired_ban_user",
		"password": database.TestSeedPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user model.User
	require.NoError(t, testDB.First(&user, "id = ?", cand.UserID).Error)
	assert.Nil(t, user.PunishmentID)
}

func TestLoginWrongPassword(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)
	payload := map[string]string{
		"username": database.TestUserCandidate1.Username,
		"password": "WrongPass999!",
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalLoginHandler, "/login", http.MethodPost, payload)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	errMsg, _ := resp["error"].(string)
	assert.Equal(t, "Username or password is incorrect", errMsg)
}

func TestLoginUserNotFound(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)
	payload := map[string]string{
		"username": "non_existent_user_xyz",
		"password": "SomePassword1!",
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalLoginHandler, "/login", http.MethodPost, payload)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	errMsg, _ := resp["error"].(string)
	assert.Equal(t, "Username or password is incorrect", errMsg)
}

func TestLoginMissingFields(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)
	rec, resp, err := utilities.SimulateAPICall(handler.LocalLoginHandler, "/login", http.MethodPost, map[string]string{
		"username": "only_username",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username or password is not provided", resp["error"])
}

func TestMeHandler(t *testing.T) {
	mc := NewMeController(testDB)

	tests := []struct {
		name    string
		user    model.User
		wantKey string
	}{
		{"Candidate", database.TestUserCandidate1, "skills"},
		{"HR", database.TestUserHR1, "company"},
		{"Admin", database.TestAdminUser, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp, err := utilities.SimulateAPICall(mc.MeHandler, "/me", http.MethodGet, nil, utilities.WithUser(tt.user))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, resp, tt.wantKey)
		})
	}

	t.Run("No user", func(t *testing.T) {
		rec, _, err := utilities.SimulateAPICall(mc.MeHandler, "/me", http.MethodGet, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRegisterDuplicateCandidateEmail(t *testing.T) {
	handler := NewLocalAuthHandler(testDB, nil)

	payload := map[string]string{
		"username": "email_twin",
		"password": "password123",
		"role":     "candidate",
		"email":    "ALICE@example.com",
	}
	rec, resp, err := utilities.SimulateAPICall(handler.LocalRegisterHandler, "/register", http.MethodPost, payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, utilities.EmailInUseMessage, resp["error"])

	var count int64
	require.NoError(t, testDB.Model(&model.User{}).Where("username = ?", "email_twin").Count(&count).Error)
	assert.Zero(t, count, "user row must roll back with the profile")
}

func TestUsernameUniqueIndex(t *testing.T) {
	// insert that skip the handler pre-check still collide on the index
	_, err := utilities.CreateAdmin(testDB.DB, database.TestUserCandidate1.Username, "password123", "", "")
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolationOn(err, database.UsernameIndex), err.Error())

	// google accounts have no username and never collide with each other
	for _, gid := range []string{"g-blank-1", "g-blank-2"} {
		require.NoError(t, testDB.Create(&model.User{GoogleID: gid, Role: model.RoleCandidate}).Error)
	}
}
