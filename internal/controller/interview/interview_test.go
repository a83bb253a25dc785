package interview

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"talentpool-backend/internal/auth"
	"talentpool-backend/internal/database"
	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/middleware"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/queue"
	"talentpool-backend/internal/testutil"
)

var testDB *database.DBinstanceStruct

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	auth.SetSecretKey("interview-test-secret")

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

type fakeAI struct {
	answer string
	err    error
}

func (f *fakeAI) GenerateJSON(_ context.Context, _ string) (string, error) {
	return f.answer, f.err
}

type fakeMailer struct{}

func (fakeMailer) SendEmail(_ context.Context, _ integrations.Email) error { return nil }

type recordingPublisher struct {
	mu   sync.Mutex
	sent []queue.Notification
}

func (p *recordingPublisher) Enqueue(_ context.Context, n queue.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

func interviewEngine(ai integrations.TextGenerator, notifier *queue.Notifier) *gin.Engine {
	r := gin.New()
	ic := NewInterviewController(testDB, ai, notifier, logging.Discard())
	hr := r.Group("/hr/interviews", middleware.RequireAuth(testDB), middleware.CheckRole(model.RoleHR))
	hr.POST("", ic.CreateInterview)
	hr.GET("", ic.GetMyInterviews)
	hr.POST("/:id/transcript", ic.AppendTranscript)
	hr.PUT("/:id/feedback", ic.SetFeedback)
	hr.POST("/:id/ai-feedback", ic.DraftAIFeedback)
	hr.PUT("/:id/recording", ic.SetRecording)
	r.GET("/interviews/:id", middleware.RequireAuth(testDB), ic.GetInterview)
	return r
}

func newHR(t *testing.T, username string) (model.HRUser, string) {
	t.Helper()
	hr, err := database.NewTestHR(testDB, username, username+" Co", model.StatusVerified, 10)
	require.NoError(t, err)
	token, err := auth.GetAccessToken(t, testDB, username, database.TestSeedPassword)
	require.NoError(t, err)
	return hr, token
}

func createInterview(t *testing.T, hrID model.HRUser, iv model.Interview) model.Interview {
	t.Helper()
	iv.HRUserID = hrID.UserID
	if iv.Status == "" {
		iv.Status = model.InterviewScheduled
	}
	require.NoError(t, testDB.Create(&iv).Error)
	return iv
}

func TestCreateInterview_LinkCandidateAndInvite(t *testing.T) {
	_, token := newHR(t, "hr_interview_create")
	pub := &recordingPublisher{}
	notifier := queue.NewNotifier(pub, &queue.Dispatcher{Mailer: fakeMailer{}})

	at := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	rec := testutil.MakeRequest(gin.H{
		"candidate_email":  "ALICE@example.com",
		"participant_name": "Alice Nguyen",
		"position":         "Backend Engineer",
		"scheduled_at":     at,
	}, token, interviewEngine(nil, notifier), "/hr/interviews", http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp, err := testutil.DecodeBody[CreateInterviewResponse](rec)
	require.NoError(t, err)
	assert.True(t, resp.InvitationQueued)
	require.NotNil(t, resp.Interview.CandidateID)
	assert.Equal(t, database.TestUserCandidate1.ID, *resp.Interview.CandidateID)
	assert.Equal(t, "alice@example.com", resp.Interview.ParticipantEmail)
	assert.Equal(t, model.InterviewScheduled, resp.Interview.Status)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, queue.KindEmail, pub.sent[0].Kind)
	assert.Equal(t, "alice@example.com", pub.sent[0].Email.To)
	assert.Contains(t, pub.sent[0].Email.Subject, "Backend Engineer")
}

func TestCreateInterview_EmailDisabled(t *testing.T) {
	_, token := newHR(t, "hr_interview_nomail")
	rec := testutil.MakeRequest(gin.H{
		"participant_name":  "Outside Person",
		"participant_email": "outside@example.org",
		"position":          "QA",
	}, token, interviewEngine(nil, nil), "/hr/interviews", http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp, err := testutil.DecodeBody[CreateInterviewResponse](rec)
	require.NoError(t, err)
	assert.False(t, resp.InvitationQueued)
	assert.Nil(t, resp.Interview.CandidateID)
}

func TestCreateInterview_Invalid(t *testing.T) {
	_, token := newHR(t, "hr_interview_invalid")
	tests := []struct {
		name     string
		body     gin.H
		wantCode int
	}{
		{"Missing name", gin.H{"participant_email": "x@example.org"}, http.StatusBadRequest},
		{"Missing email", gin.H{"participant_name": "X"}, http.StatusBadRequest},
		{"Unknown candidate", gin.H{"participant_name": "X", "candidate_email": "nobody@example.org"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.MakeRequest(tt.body, token, interviewEngine(nil, nil), "/hr/interviews", http.MethodPost)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestAppendTranscript(t *testing.T) {
	hr, token := newHR(t, "hr_interview_transcript")
	iv := createInterview(t, hr, model.Interview{ParticipantName: "P", ParticipantEmail: "p@example.org", Position: "Dev"})
	engine := interviewEngine(nil, nil)
	endpoint := fmt.Sprintf("/hr/interviews/%d/transcript", iv.ID)

	rec := testutil.MakeRequest(gin.H{"speaker": "HR", "text": "Tell me about yourself"}, token, engine, endpoint, http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = testutil.MakeRequest(gin.H{"speaker": "P", "text": "I write Go"}, token, engine, endpoint, http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := testutil.DecodeBody[model.Interview](rec)
	require.NoError(t, err)
	require.Len(t, got.Transcript, 2)
	assert.Equal(t, "HR", got.Transcript[0].Speaker)
	assert.Equal(t, "I write Go", got.Transcript[1].Text)
	assert.False(t, got.Transcript[1].At.IsZero())

	rec = testutil.MakeRequest(gin.H{"speaker": "HR"}, token, engine, endpoint, http.MethodPost)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInterviewOwnership(t *testing.T) {
	owner, _ := newHR(t, "hr_interview_owner")
	_, otherToken := newHR(t, "hr_interview_other")
	iv := createInterview(t, owner, model.Interview{ParticipantName: "P", ParticipantEmail: "p@example.org"})
	engine := interviewEngine(nil, nil)

	tests := []struct {
		name     string
		endpoint string
		wantCode int
	}{
		{"Other HR", fmt.Sprintf("/hr/interviews/%d/feedback", iv.ID), http.StatusForbidden},
		{"Not found", "/hr/interviews/999999/feedback", http.StatusNotFound},
		{"Bad id", "/hr/interviews/abc/feedback", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.MakeRequest(gin.H{"overall_score": 5}, otherToken, engine, tt.endpoint, http.MethodPut)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestSetFeedback(t *testing.T) {
	hr, token := newHR(t, "hr_interview_feedback")
	iv := createInterview(t, hr, model.Interview{ParticipantName: "P", ParticipantEmail: "p@example.org"})
	engine := interviewEngine(nil, nil)
	endpoint := fmt.Sprintf("/hr/interviews/%d/feedback", iv.ID)

	rec := testutil.MakeRequest(gin.H{"overall_score": 11}, token, engine, endpoint, http.MethodPut)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = testutil.MakeRequest(gin.H{"overall_score": -1}, token, engine, endpoint, http.MethodPut)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.MakeRequest(gin.H{"overall_score": 8, "strengths": []string{"clear"}}, token, engine, endpoint, http.MethodPut)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var saved model.Interview
	require.NoError(t, testDB.First(&saved, iv.ID).Error)
	assert.Equal(t, model.InterviewCompleted, saved.Status)
	assert.Equal(t, 8, saved.Feedback.Data().OverallScore)
	assert.Equal(t, []string{"clear"}, saved.Feedback.Data().Strengths)
	assert.Equal(t, []string{}, saved.Feedback.Data().Improvements)
}

func TestDraftAIFeedback(t *testing.T) {
	hr, token := newHR(t, "hr_interview_ai")
	empty := createInterview(t, hr, model.Interview{ParticipantName: "P", ParticipantEmail: "p@example.org"})
	withTranscript := createInterview(t, hr, model.Interview{
		ParticipantName:  "P",
		ParticipantEmail: "p@example.org",
		Position:         "Dev",
		Transcript:       []model.TranscriptEntry{{Speaker: "HR", Text: "Why Go?", At: time.Now()}},
	})
	answer := `{"strengths":["concise"],"improvements":["depth"],"overall_score":7}`

	tests := []struct {
		name     string
		ai       integrations.TextGenerator
		id       uint
		wantCode int
	}{
		{"Success", &fakeAI{answer: answer}, withTranscript.ID, http.StatusOK},
		{"Empty transcript", &fakeAI{answer: answer}, empty.ID, http.StatusBadRequest},
		{"AI disabled", nil, withTranscript.ID, http.StatusServiceUnavailable},
		{"Bad answer", &fakeAI{answer: "nope"}, withTranscript.ID, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := fmt.Sprintf("/hr/interviews/%d/ai-feedback", tt.id)
			rec, resp := testutil.MakeJSONRequest(nil, token, interviewEngine(tt.ai, nil), endpoint, http.MethodPost)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode == http.StatusOK {
				assert.EqualValues(t, 7, resp["overall_score"])
			}
		})
	}

	var saved model.Interview
	require.NoError(t, testDB.First(&saved, withTranscript.ID).Error)
	assert.Equal(t, model.InterviewScheduled, saved.Status)
	assert.Zero(t, saved.Feedback.Data().OverallScore)
}

func TestSetRecording(t *testing.T) {
	hr, token := newHR(t, "hr_interview_recording")
	iv := createInterview(t, hr, model.Interview{ParticipantName: "P", ParticipantEmail: "p@example.org"})
	endpoint := fmt.Sprintf("/hr/interviews/%d/recording", iv.ID)

	tests := []struct {
		name     string
		url      string
		wantCode int
	}{
		{"Https", "https://cdn.example.com/rec/1.mp4", http.StatusOK},
		{"Ftp", "ftp://example.com/rec.mp4", http.StatusBadRequest},
		{"Relative", "rec.mp4", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.MakeRequest(gin.H{"recording_url": tt.url}, token, interviewEngine(nil, nil), endpoint, http.MethodPut)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	var saved model.Interview
	require.NoError(t, testDB.First(&saved, iv.ID).Error)
	assert.Equal(t, "https://cdn.example.com/rec/1.mp4", saved.RecordingURL)
}

func TestGetMyInterviews(t *testing.T) {
	hr, token := newHR(t, "hr_interview_list")
	later := time.Now().Add(72 * time.Hour)
	sooner := time.Now().Add(24 * time.Hour)
	createInterview(t, hr, model.Interview{ParticipantName: "Later", ParticipantEmail: "l@example.org", ScheduledAt: &later})
	createInterview(t, hr, model.Interview{ParticipantName: "Sooner", ParticipantEmail: "s@example.org", ScheduledAt: &sooner})
	createInterview(t, hr, model.Interview{ParticipantName: "Done", ParticipantEmail: "d@example.org", Status: model.InterviewCompleted})

	rec := testutil.MakeRequest(nil, token, interviewEngine(nil, nil), "/hr/interviews", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := testutil.DecodeBody[[]model.Interview](rec)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Sooner", got[0].ParticipantName)
	assert.Equal(t, "Later", got[1].ParticipantName)

	rec = testutil.MakeRequest(nil, token, interviewEngine(nil, nil), "/hr/interviews?status=completed", http.MethodGet)
	got, err = testutil.DecodeBody[[]model.Interview](rec)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Done", got[0].ParticipantName)
}

func TestGetInterview_Access(t *testing.T) {
	owner, ownerToken := newHR(t, "hr_interview_access")
	_, otherToken := newHR(t, "hr_interview_access_other")
	candidateID := database.TestUserCandidate2.ID
	iv := createInterview(t, owner, model.Interview{
		CandidateID:      &candidateID,
		ParticipantName:  "Bob",
		ParticipantEmail: "bob@example.com",
	})

	tokenOf := func(username string) string {
		token, err := auth.GetAccessToken(t, testDB, username, database.TestSeedPassword)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"Owner HR", ownerToken, http.StatusOK},
		{"Other HR", otherToken, http.StatusForbidden},
		{"Participant", tokenOf(database.TestUserCandidate2.Username), http.StatusOK},
		{"Other candidate", tokenOf(database.TestUserCandidate1.Username), http.StatusForbidden},
		{"Admin", tokenOf(database.TestAdminUser.Username), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.MakeRequest(nil, tt.token, interviewEngine(nil, nil), fmt.Sprintf("/interviews/%d", iv.ID), http.MethodGet)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestGetInterview_UnlinkedByEmail(t *testing.T) {
	owner, _ := newHR(t, "hr_interview_guest")
	iv := createInterview(t, owner, model.Interview{
		ParticipantName:  "Guest",
		ParticipantEmail: "guest@example.com",
	})
	guest, err := database.NewTestCandidate(testDB, "guest_candidate", model.EditableCandidateInfo{
		FullName: "Guest Candidate",
		Email:    "Guest@example.com",
	})
	require.NoError(t, err)

	get := func(t *testing.T) int {
		t.Helper()
		token, err := auth.GetAccessToken(t, testDB, "guest_candidate", database.TestSeedPassword)
		require.NoError(t, err)
		rec := testutil.MakeRequest(nil, token, interviewEngine(nil, nil), fmt.Sprintf("/interviews/%d", iv.ID), http.MethodGet)
		return rec.Code
	}

	// email was typed in at registration, anyone could claim it
	assert.Equal(t, http.StatusForbidden, get(t))

	require.NoError(t, testDB.Model(&model.User{}).Where("id = ?", guest.UserID).Update("google_id", "g-guest").Error)
	assert.Equal(t, http.StatusOK, get(t))
}
