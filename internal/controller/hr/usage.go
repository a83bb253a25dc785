package hr

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"talentpool-backend/internal/events"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/utilities"
)

// KeepAliveInterval is how often usage stream send a ping event
var KeepAliveInterval = 25 * time.Second

// GetUsage return usage counters of current billing period
// @Summary Retrieve usage metrics
// @Tags HR
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} model.UsageMetrics
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR"
// @Failure 404 {object} utilities.ErrorResponse "Usage metrics not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/usage [get]
func (hc *HRController) GetUsage(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	usage, err := hc.Quota.Snapshot(c.Request.Context(), user.ID)
	switch {
	case errors.Is(err, quota.ErrNoUsage):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Usage metrics not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve usage metrics: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, usage)
}

// StreamUsage push usage changes of current HR as server-sent events. The first event
// is the current snapshot, then one "usage" event per change and "ping" to keep the
// connection open.
// @Summary Stream usage metrics
// @Tags HR
// @Produce text/event-stream
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} events.UsageEvent
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR"
// @Failure 404 {object} utilities.ErrorResponse "Usage metrics not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/usage/stream [get]
func (hc *HRController) StreamUsage(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	usage, err := hc.Quota.Snapshot(ctx, user.ID)
	switch {
	case errors.Is(err, quota.ErrNoUsage):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Usage metrics not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve usage metrics: %s", err.Error()),
		})
		return
	}

	ch, cancel, err := hc.Broker.Subscribe(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to subscribe usage events: %s", err.Error()),
		})
		return
	}
	defer cancel()

	// server WriteTimeout would otherwise cut the stream after its first seconds
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		hc.Log.WithError(err).Debug("cannot clear write deadline of usage stream")
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("usage", events.UsageEvent{
		Type:     events.UsageSnapshot,
		HRUserID: user.ID,
		Usage:    usage,
		At:       time.Now(),
	})
	c.Writer.Flush()

	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("usage", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now()})
			return true
		}
	})
	hc.Log.WithField("hr_user_id", user.ID).Debug("usage stream closed")
}
