// Package file provides HTTP handlers for resume upload and download.
package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/matching"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/resume"
	"talentpool-backend/internal/utilities"
)

// MaxResumeSize is the largest resume accepted
const MaxResumeSize = 10 << 20

const ResumeObjectPrefix = "resumes"

// FileController handles file related endpoints
type FileController struct {
	DB      *database.DBinstanceStruct
	Storage StorageClient
	Quota   *quota.Service
	Log     *logrus.Entry
}

// NewFileController creates a new instance of FileController, storage may be nil to keep
// file content in the database
func NewFileController(db *database.DBinstanceStruct, storage StorageClient, q *quota.Service, log *logrus.Entry) *FileController {
	if log == nil {
		log = logrus.WithField("component", "file")
	}
	return &FileController{
		DB:      db,
		Storage: storage,
		Quota:   q,
		Log:     log,
	}
}

// ResumeURL is where resume file of given id can be downloaded
func ResumeURL(id int) string {
	return fmt.Sprintf("/api/v1/file/%d", id)
}

// UploadResume stores the resume of candidate, extracts its text and recomputes profile score
// @Summary Upload resume file for candidate
// @Description Only file that smaller than 10 MB with .pdf or .docx extension is permitted
// @Tags Candidate
// @Accept mpfd
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param resume formData file true "Upload your resume file"
// @Success 200 {object} model.CandidateProfile "Successfully upload resume"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, missing file"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as candidate, User is banned"
// @Failure 413 {object} utilities.ErrorResponse "File size is larger than 10 MB"
// @Failure 415 {object} utilities.ErrorResponse "File extension is not allowed"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /candidate/profile/resume [post]
func (jc *FileController) UploadResume(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	var candidate model.CandidateProfile
	if err := jc.DB.Preload("User").Where("user_id = ?", user.ID).First(&candidate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Candidate profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve user information from database: %s", err.Error()),
		})
		return
	}

	rawFile, err := c.FormFile("resume")
	var maxBytesError *http.MaxBytesError
	if errors.As(err, &maxBytesError) {
		c.JSON(http.StatusRequestEntityTooLarge, utilities.ErrorResponse{Error: "Entity too large"})
		return
	}
	if errors.Is(err, http.ErrMissingFile) {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "resume file is required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve file: %s", err.Error()),
		})
		return
	}
	if rawFile.Size > MaxResumeSize {
		c.JSON(http.StatusRequestEntityTooLarge, utilities.ErrorResponse{Error: "Entity too large"})
		return
	}

	extension, err := resume.Extension(rawFile.Filename)
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	f, err := rawFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Cannot open file"})
		return
	}
	defer func() { _ = f.Close() }()

	fileBytes, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Cannot read file"})
		return
	}

	text, err := resume.ExtractText(extension, fileBytes)
	if err != nil {
		// keep the upload, the profile is just scored without parsed text
		jc.Log.WithError(err).WithField("user_id", user.ID).Warn("failed to extract resume text")
	}

	file := model.File{OwnerID: user.ID}
	if err := jc.persistFileData(c, &file, fileBytes, extension, ResumeObjectPrefix); err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to store resume: %s", err.Error()),
		})
		return
	}

	oldResumeID := candidate.ResumeID
	var oldObject string
	if oldResumeID != nil {
		var old model.File
		if err := jc.DB.Select("id", "storage_object_name").First(&old, *oldResumeID).Error; err == nil {
			oldObject = old.StorageObjectName
		}
	}
	err = jc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&file).Error; err != nil {
			return err
		}
		candidate.ResumeID = &file.ID
		candidate.ResumeURL = ResumeURL(file.ID)
		candidate.ParsedText = text
		candidate.Score = matching.ProfileScore(candidate)

		if err := tx.Model(&model.CandidateProfile{}).Where("user_id = ?", user.ID).Updates(map[string]interface{}{
			"resume_id":   candidate.ResumeID,
			"resume_url":  candidate.ResumeURL,
			"parsed_text": candidate.ParsedText,
			"score":       candidate.Score,
		}).Error; err != nil {
			return err
		}
		if oldResumeID != nil {
			return tx.Delete(&model.File{}, *oldResumeID).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to update user information: %s", err.Error()),
		})
		return
	}

	if oldObject != "" && jc.Storage != nil {
		if err := jc.Storage.DeleteFile(c.Request.Context(), oldObject); err != nil {
			jc.Log.WithError(err).WithField("object", oldObject).Warn("failed to delete replaced resume")
		}
	}

	c.JSON(http.StatusOK, candidate)
}

// GetFile sends the stored file as a downloadable attachment. Owner and admin can always
// download it, HR only after viewing the owner in the current period.
// @Summary Retrieve dowloadable attachment
// @Tags File
// @Produce octet-stream
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "ID of wanted file"
// @Success 200 {string} binary "Successfully retrieve file"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, invalid id"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not allowed to read this file"
// @Failure 404 {object} utilities.ErrorResponse "Given file id not found"
// @Failure 500 {object} utilities.ErrorResponse "Fail to send file content"
// @Router /file/{id} [get]
func (jc *FileController) GetFile(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid file id"})
		return
	}

	var file model.File
	if err := jc.DB.WithContext(c.Request.Context()).First(&file, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "File not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve file: %s", err.Error()),
		})
		return
	}

	allowed, err := jc.canRead(c, user, file.OwnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to check file access: %s", err.Error()),
		})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, utilities.ErrorResponse{
			Error: "You are not allowed to read this file",
		})
		return
	}

	jc.writeFileResponse(c, &file)
}

func (jc *FileController) canRead(c *gin.Context, user model.User, owner uuid.UUID) (bool, error) {
	switch {
	case user.Role == model.RoleAdmin, user.ID == owner:
		return true, nil
	case user.Role == model.RoleHR && jc.Quota != nil:
		return jc.Quota.HasViewed(c.Request.Context(), user.ID, owner)
	}
	return false, nil
}

func contentType(extension string) string {
	switch extension {
	case resume.ExtPDF:
		return "application/pdf"
	case resume.ExtDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}

func setAttachmentHeader(c *gin.Context, file *model.File, size int64) {
	c.Writer.Header().Set("Content-Disposition", "attachment; filename=resume-"+fmt.Sprint(file.ID)+file.Extension)
	c.Writer.Header().Set("Content-Type", contentType(file.Extension))
	if size > 0 {
		c.Writer.Header().Set("Content-Length", fmt.Sprint(size))
	}
}

func (jc *FileController) writeFileResponse(c *gin.Context, file *model.File) {
	if file.StorageObjectName != "" {
		if jc.Storage == nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: "Cloud storage is disabled while the requested file is stored remotely",
			})
			return
		}
		reader, size, err := jc.Storage.DownloadFile(c.Request.Context(), file.StorageObjectName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to download file from storage: %s", err.Error()),
			})
			return
		}
		defer func() {
			if err := reader.Close(); err != nil {
				jc.Log.WithError(err).Warn("failed to close storage reader")
			}
		}()

		setAttachmentHeader(c, file, size)
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, reader); err != nil {
			jc.handleWriterError(c, err)
		}
		return
	}

	setAttachmentHeader(c, file, int64(len(file.Content)))
	c.Status(http.StatusOK)
	if _, err := c.Writer.Write(file.Content); err != nil {
		jc.handleWriterError(c, err)
	}
}

func (jc *FileController) handleWriterError(c *gin.Context, err error) {
	jc.Log.WithError(err).Warn("failed to send file content")
	if !c.Writer.Written() {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: "Failed to send file content",
		})
	} else {
		c.Abort()
	}
}

func (jc *FileController) persistFileData(c *gin.Context, file *model.File, fileBytes []byte, extension, prefix string) error {
	file.Extension = extension
	if jc.Storage == nil {
		file.Content = fileBytes
		file.StorageObjectName = ""
		return nil
	}

	objectName := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), extension)
	if err := jc.Storage.UploadFile(c.Request.Context(), objectName, bytes.NewReader(fileBytes)); err != nil {
		return err
	}

	file.StorageObjectName = objectName
	file.Content = nil
	return nil
}
