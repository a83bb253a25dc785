// Package interview provides HTTP handlers for interviews that HR hold with participants:
// scheduling with invitation, transcript, feedback (manual or AI drafted) and recording.
package interview

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/queue"
	"talentpool-backend/internal/utilities"
)

// InterviewController handles interview endpoints
type InterviewController struct {
	DB       *database.DBinstanceStruct
	AI       integrations.TextGenerator
	Notifier *queue.Notifier
	Log      *logrus.Entry
}

// NewInterviewController create interview controller, ai and notifier may be nil
func NewInterviewController(db *database.DBinstanceStruct, ai integrations.TextGenerator, notifier *queue.Notifier, log *logrus.Entry) *InterviewController {
	if log == nil {
		log = logrus.WithField("component", "interview")
	}
	return &InterviewController{
		DB:       db,
		AI:       ai,
		Notifier: notifier,
		Log:      log,
	}
}

// CreateInterviewRequest is body of interview scheduling
type CreateInterviewRequest struct {
	CandidateEmail   string     `json:"candidate_email"`
	ParticipantName  string     `json:"participant_name" binding:"required"`
	ParticipantEmail string     `json:"participant_email"`
	Position         string     `json:"position"`
	ScheduledAt      *time.Time `json:"scheduled_at"`
}

// CreateInterviewResponse is created interview and whether invitation was queued
type CreateInterviewResponse struct {
	Interview        model.Interview `json:"interview"`
	InvitationQueued bool            `json:"invitation_queued"`
}

type recordingRequest struct {
	RecordingURL string `json:"recording_url" binding:"required"`
}

func invitationEmail(iv model.Interview, companyName string) integrations.Email {
	when := "a time to be confirmed"
	if iv.ScheduledAt != nil {
		when = iv.ScheduledAt.UTC().Format("Monday, 02 January 2006 15:04 MST")
	}
	from := "our team"
	if companyName != "" {
		from = companyName
	}
	body := fmt.Sprintf("<p>Hello %s,</p><p>You are invited by %s to interview for <b>%s</b> on %s.</p>",
		html.EscapeString(iv.ParticipantName), html.EscapeString(from), html.EscapeString(iv.Position), when)
	return integrations.Email{
		To:      iv.ParticipantEmail,
		Subject: fmt.Sprintf("Interview invitation: %s", iv.Position),
		HTML:    body,
	}
}

// CreateInterview schedule interview and queue invitation email to participant
// @Summary Schedule interview
// @Description When candidate_email is given the interview is linked to that candidate account
// @Description and participant email default to it. Invitation is queued when email is configured.
// @Tags Interview
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param body body CreateInterviewRequest true "Interview"
// @Success 201 {object} CreateInterviewResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR"
// @Failure 404 {object} utilities.ErrorResponse "Candidate not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/interviews [post]
func (ic *InterviewController) CreateInterview(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	req := CreateInterviewRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	ctx := c.Request.Context()
	iv := model.Interview{
		HRUserID:         user.ID,
		ParticipantName:  strings.TrimSpace(req.ParticipantName),
		ParticipantEmail: strings.TrimSpace(req.ParticipantEmail),
		Position:         strings.TrimSpace(req.Position),
		ScheduledAt:      req.ScheduledAt,
		Status:           model.InterviewScheduled,
		Transcript:       datatypes.JSONSlice[model.TranscriptEntry]{},
	}

	if email := strings.TrimSpace(req.CandidateEmail); email != "" {
		candidate := model.CandidateProfile{}
		err := ic.DB.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&candidate).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Candidate not found"})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to retrieve candidate: %s", err.Error()),
			})
			return
		}
		iv.CandidateID = &candidate.UserID
		if iv.ParticipantEmail == "" {
			iv.ParticipantEmail = candidate.Email
		}
	}

	if iv.ParticipantEmail == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Invalid request body: participant_email is required",
		})
		return
	}

	if err := ic.DB.WithContext(ctx).Create(&iv).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to create interview: %s", err.Error()),
		})
		return
	}

	queued := false
	if ic.Notifier.CanSend(queue.KindEmail) {
		company := model.Company{}
		_ = ic.DB.WithContext(ctx).Where("hr_user_id = ?", user.ID).Limit(1).Find(&company).Error
		if err := ic.Notifier.Send(ctx, queue.EmailNotification(invitationEmail(iv, company.Name))); err != nil {
			ic.Log.WithError(err).WithField("interview_id", iv.ID).Warn("failed to queue interview invitation")
		} else {
			queued = true
		}
	}

	c.JSON(http.StatusCreated, CreateInterviewResponse{Interview: iv, InvitationQueued: queued})
}

func (ic *InterviewController) loadInterview(c *gin.Context) (model.Interview, bool) {
	iv := model.Interview{}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid interview id"})
		return iv, false
	}

	err = ic.DB.WithContext(c.Request.Context()).First(&iv, id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Interview not found"})
		return iv, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return iv, false
	}
	return iv, true
}

// ownInterview load interview from :id path that HR in context hold
func (ic *InterviewController) ownInterview(c *gin.Context) (model.Interview, bool) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return model.Interview{}, false
	}

	iv, ok := ic.loadInterview(c)
	if !ok {
		return iv, false
	}
	if iv.HRUserID != user.ID {
		c.JSON(http.StatusForbidden, utilities.ErrorResponse{Error: "You do not hold this interview"})
		return iv, false
	}
	return iv, true
}

// a nil slice is stored as JSON null, which is not an array to concatenate to
const appendTranscriptSQL = `(CASE WHEN jsonb_typeof(transcript) = 'array' THEN transcript ELSE '[]'::jsonb END) || ?::jsonb`

// AppendTranscript add one line to transcript of interview
// @Summary Append transcript entry
// @Tags Interview
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Interview ID"
// @Param body body model.TranscriptEntry true "Transcript entry, at default to now"
// @Success 200 {object} model.Interview
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, id or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR, not holder of interview"
// @Failure 404 {object} utilities.ErrorResponse "Interview not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/interviews/{id}/transcript [post]
func (ic *InterviewController) AppendTranscript(c *gin.Context) {
	iv, ok := ic.ownInterview(c)
	if !ok {
		return
	}

	entry := model.TranscriptEntry{}
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	payload, err := json.Marshal([]model.TranscriptEntry{entry})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	db := ic.DB.WithContext(c.Request.Context())
	// append in SQL so concurrent writers don't overwrite each other
	if err := db.Model(&model.Interview{}).Where("id = ?", iv.ID).
		Update("transcript", gorm.Expr(appendTranscriptSQL, string(payload))).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to append transcript: %s", err.Error()),
		})
		return
	}
	if err := db.First(&iv, iv.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, iv)
}

// SetFeedback save HR feedback and mark interview completed
// @Summary Save interview feedback
// @Tags Interview
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Interview ID"
// @Param body body model.Feedback true "Feedback, overall_score from 0 to 10"
// @Success 200 {object} model.Interview
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, id or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR, not holder of interview"
// @Failure 404 {object} utilities.ErrorResponse "Interview not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/interviews/{id}/feedback [put]
func (ic *InterviewController) SetFeedback(c *gin.Context) {
	iv, ok := ic.ownInterview(c)
	if !ok {
		return
	}

	fb := model.Feedback{}
	if err := c.ShouldBindJSON(&fb); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if fb.OverallScore < 0 || fb.OverallScore > 10 {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Invalid request body: overall_score must be between 0 and 10",
		})
		return
	}
	if fb.Strengths == nil {
		fb.Strengths = []string{}
	}
	if fb.Improvements == nil {
		fb.Improvements = []string{}
	}

	iv.Feedback = datatypes.NewJSONType(fb)
	iv.Status = model.InterviewCompleted
	if err := ic.DB.WithContext(c.Request.Context()).Model(&iv).
		Select("feedback", "status").
		Updates(&iv).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to save feedback: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, iv)
}

// DraftAIFeedback ask AI to draft feedback from transcript, the draft is not saved
// @Summary Draft interview feedback with AI
// @Tags Interview
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Interview ID"
// @Success 200 {object} model.Feedback
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, id or empty transcript"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR, not holder of interview"
// @Failure 404 {object} utilities.ErrorResponse "Interview not found"
// @Failure 502 {object} utilities.ErrorResponse "AI service error"
// @Failure 503 {object} utilities.ErrorResponse "AI is not configured"
// @Router /hr/interviews/{id}/ai-feedback [post]
func (ic *InterviewController) DraftAIFeedback(c *gin.Context) {
	iv, ok := ic.ownInterview(c)
	if !ok {
		return
	}
	if len(iv.Transcript) == 0 {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Interview has no transcript"})
		return
	}

	fb, err := integrations.DraftFeedback(c.Request.Context(), ic.AI, iv.Position, iv.Transcript)
	if err != nil {
		c.JSON(integrations.HTTPStatus(err), utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to draft feedback: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, fb)
}

// SetRecording attach recording URL to interview
// @Summary Attach interview recording
// @Tags Interview
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Interview ID"
// @Param body body recordingRequest true "http or https URL of recording"
// @Success 200 {object} model.Interview
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, id or URL"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR, not holder of interview"
// @Failure 404 {object} utilities.ErrorResponse "Interview not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/interviews/{id}/recording [put]
func (ic *InterviewController) SetRecording(c *gin.Context) {
	iv, ok := ic.ownInterview(c)
	if !ok {
		return
	}

	req := recordingRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	u, err := url.ParseRequestURI(strings.TrimSpace(req.RecordingURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Invalid request body: recording_url must be an http or https URL",
		})
		return
	}

	iv.RecordingURL = u.String()
	if err := ic.DB.WithContext(c.Request.Context()).Model(&iv).
		Update("recording_url", iv.RecordingURL).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to save recording: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, iv)
}

// GetMyInterviews list interviews held by current HR
// @Summary List interviews of HR
// @Tags Interview
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param status query string false "scheduled or completed"
// @Success 200 {array} model.Interview
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/interviews [get]
func (ic *InterviewController) GetMyInterviews(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	query := ic.DB.WithContext(c.Request.Context()).Where("hr_user_id = ?", user.ID)
	if status := strings.ToLower(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}

	interviews := []model.Interview{}
	if err := query.Order("scheduled_at ASC NULLS LAST").Order("id ASC").Find(&interviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, interviews)
}

func canRead(user model.User, iv model.Interview) bool {
	switch user.Role {
	case model.RoleAdmin:
		return true
	case model.RoleHR:
		return iv.HRUserID == user.ID
	case model.RoleCandidate:
		if iv.CandidateID != nil {
			return *iv.CandidateID == user.ID
		}
		email := user.VerifiedEmail()
		return email != "" && strings.EqualFold(email, iv.ParticipantEmail)
	}
	return false
}

// GetInterview return interview to its HR, the candidate taking it, or admin
// @Summary Retrieve interview
// @Tags Interview
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Interview ID"
// @Success 200 {object} model.Interview
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or id"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not allowed to read this interview"
// @Failure 404 {object} utilities.ErrorResponse "Interview not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /interviews/{id} [get]
func (ic *InterviewController) GetInterview(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	iv, ok := ic.loadInterview(c)
	if !ok {
		return
	}
	if !canRead(user, iv) {
		c.JSON(http.StatusForbidden, utilities.ErrorResponse{Error: "You are not allowed to read this interview"})
		return
	}
	c.JSON(http.StatusOK, iv)
}
