// Package integration exposes thin proxies to third-party services: notification,
// YouTube search, PDF rendering and IP geolocation.
package integration

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"talentpool-backend/internal/cache"
	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/queue"
	"talentpool-backend/internal/utilities"
)

// YouTubeCacheTTL is how long search answers are reused
const YouTubeCacheTTL = time.Hour

// IntegrationController handles proxy endpoints. Any client left nil answers 503.
type IntegrationController struct {
	Notifier *queue.Notifier
	Videos   integrations.VideoSearcher
	Cache    cache.Cache
	PDF      integrations.PDFRenderer
	Geo      integrations.GeoLocator
	Log      *logrus.Entry
}

func NewIntegrationController(
	notifier *queue.Notifier,
	videos integrations.VideoSearcher,
	c cache.Cache,
	pdf integrations.PDFRenderer,
	geo integrations.GeoLocator,
	log *logrus.Entry,
) *IntegrationController {
	if log == nil {
		log = logrus.WithField("component", "integration")
	}
	return &IntegrationController{
		Notifier: notifier,
		Videos:   videos,
		Cache:    c,
		PDF:      pdf,
		Geo:      geo,
		Log:      log,
	}
}

// PDFRequest is HTML document to render
type PDFRequest struct {
	HTML     string `json:"html" binding:"required"`
	Filename string `json:"filename"`
}

// GeoResponse is location of caller IP
type GeoResponse struct {
	IP string `json:"ip"`
	integrations.Location
}

// YouTubeResponse is list of found videos
type YouTubeResponse struct {
	Query  string               `json:"query"`
	Videos []integrations.Video `json:"videos"`
}

func (ic *IntegrationController) enqueue(c *gin.Context, msg queue.Notification) {
	if err := msg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if err := ic.Notifier.Send(c.Request.Context(), msg); err != nil {
		if errors.Is(err, integrations.ErrDisabled) {
			c.JSON(http.StatusServiceUnavailable, utilities.ErrorResponse{
				Error: fmt.Sprintf("%s is not configured", msg.Kind),
			})
			return
		}
		ic.Log.WithError(err).WithField("kind", msg.Kind).Error("failed to queue notification")
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to queue %s: %s", msg.Kind, err.Error()),
		})
		return
	}
	c.JSON(http.StatusAccepted, utilities.MessageResponse{Message: fmt.Sprintf("%s queued", msg.Kind)})
}

// SendEmail queue email for delivery
// @Summary Send email
// @Tags Integration
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param body body integrations.Email true "Email"
// @Success 202 {object} utilities.MessageResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR or admin"
// @Failure 503 {object} utilities.ErrorResponse "Email is not configured"
// @Router /notify/email [post]
func (ic *IntegrationController) SendEmail(c *gin.Context) {
	email := integrations.Email{}
	if err := c.ShouldBindJSON(&email); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	ic.enqueue(c, queue.EmailNotification(email))
}

// SendWhatsApp queue WhatsApp template message for delivery
// @Summary Send WhatsApp template message
// @Tags Integration
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param body body integrations.WhatsAppMessage true "Message"
// @Success 202 {object} utilities.MessageResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR or admin"
// @Failure 503 {object} utilities.ErrorResponse "WhatsApp is not configured"
// @Router /notify/whatsapp [post]
func (ic *IntegrationController) SendWhatsApp(c *gin.Context) {
	msg := integrations.WhatsAppMessage{}
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	ic.enqueue(c, queue.WhatsAppNotification(msg))
}

// SearchYouTube search YouTube videos, answers are cached for an hour
// @Summary Search YouTube
// @Tags Integration
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param q query string true "Search query"
// @Param max query int false "Number of results from 1 to 25, default 8"
// @Success 200 {object} YouTubeResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or query"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 502 {object} utilities.ErrorResponse "YouTube error"
// @Failure 503 {object} utilities.ErrorResponse "YouTube is not configured"
// @Router /youtube/search [get]
func (ic *IntegrationController) SearchYouTube(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Query 'q' is required"})
		return
	}
	limit, err := utilities.QueryInt(c, "max", 8, 1, 25)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	if ic.Videos == nil {
		c.JSON(http.StatusServiceUnavailable, utilities.ErrorResponse{Error: "YouTube is not configured"})
		return
	}

	ctx := c.Request.Context()
	key := fmt.Sprintf("youtube:%d:%s", limit, strings.ToLower(q))
	resp := YouTubeResponse{Query: q}
	if ic.Cache != nil {
		found, err := ic.Cache.Get(ctx, key, &resp.Videos)
		if err != nil {
			ic.Log.WithError(err).Warn("youtube cache read failed")
		}
		if found {
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	videos, err := ic.Videos.SearchVideos(ctx, q, int64(limit))
	if err != nil {
		c.JSON(integrations.HTTPStatus(err), utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to search YouTube: %s", err.Error()),
		})
		return
	}
	resp.Videos = videos
	if ic.Cache != nil {
		if err := ic.Cache.Set(ctx, key, videos, YouTubeCacheTTL); err != nil {
			ic.Log.WithError(err).Warn("youtube cache write failed")
		}
	}
	c.JSON(http.StatusOK, resp)
}

func pdfFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		name = "document"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// RenderPDF turn HTML into PDF
// @Summary Render HTML to PDF
// @Tags Integration
// @Accept json
// @Produce application/pdf
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param body body PDFRequest true "HTML document"
// @Success 200 {file} file
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 502 {object} utilities.ErrorResponse "Renderer error"
// @Failure 503 {object} utilities.ErrorResponse "PDF rendering is not configured"
// @Router /pdf/render [post]
func (ic *IntegrationController) RenderPDF(c *gin.Context) {
	req := PDFRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if ic.PDF == nil {
		c.JSON(http.StatusServiceUnavailable, utilities.ErrorResponse{Error: "PDF rendering is not configured"})
		return
	}

	doc, err := ic.PDF.RenderPDF(c.Request.Context(), req.HTML)
	if err != nil {
		c.JSON(integrations.HTTPStatus(err), utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to render PDF: %s", err.Error()),
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", pdfFilename(req.Filename)))
	c.Data(http.StatusOK, "application/pdf", doc)
}

// GetGeo locate caller by its IP
// @Summary Geolocation of caller
// @Tags Integration
// @Produce json
// @Success 200 {object} GeoResponse
// @Failure 502 {object} utilities.ErrorResponse "Geolocation service error"
// @Failure 503 {object} utilities.ErrorResponse "Geolocation is not configured"
// @Router /geo [get]
func (ic *IntegrationController) GetGeo(c *gin.Context) {
	if ic.Geo == nil {
		c.JSON(http.StatusServiceUnavailable, utilities.ErrorResponse{Error: "Geolocation is not configured"})
		return
	}
	ip := c.ClientIP()
	loc, err := ic.Geo.Locate(c.Request.Context(), ip)
	if err != nil {
		c.JSON(integrations.HTTPStatus(err), utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to locate: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, GeoResponse{IP: ip, Location: loc})
}
