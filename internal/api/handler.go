package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/discentra/discentra/internal/feed"
	"github.com/discentra/discentra/internal/models"
	"github.com/discentra/discentra/internal/observability"
	"github.com/discentra/discentra/internal/report"
	"github.com/discentra/discentra/internal/session"
)

// Feed is the fetcher surface the handler needs.
type Feed interface {
	State() models.FetchState
	Refresh(ctx context.Context) models.FetchState
}

// Reporter queues one emergency report for dispatch.
type Reporter interface {
	Submit(sub report.Submission)
}

type Handler struct {
	feed        Feed
	broadcaster *feed.Broadcaster
	sessions    *session.Manager
	reports     Reporter
	metrics     *observability.Metrics
}

func NewHandler(f Feed, bc *feed.Broadcaster, sessions *session.Manager, reports Reporter, metrics *observability.Metrics) *Handler {
	return &Handler{
		feed:        f,
		broadcaster: bc,
		sessions:    sessions,
		reports:     reports,
		metrics:     metrics,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/disasters", h.getDisasters)
	r.GET("/api/disasters/geojson", h.getDisastersGeoJSON)
	r.POST("/api/disasters/refresh", h.refreshDisasters)
	r.GET("/api/disasters/stream", h.streamDisasters)
	r.POST("/api/chat", h.postChat)
	r.GET("/api/chat/:id/messages", h.getMessages)
	r.POST("/api/report", h.postReport)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func stateResponse(st models.FetchState) gin.H {
	resp := gin.H{
		"success":      st.LastError == "",
		"data":         st.Records,
		"last_updated": st.LastUpdated,
		"retry_count":  st.RetryCount,
	}
	if st.LastError != "" {
		resp["error"] = st.LastError
	}
	return resp
}

func (h *Handler) getDisasters(c *gin.Context) {
	c.JSON(http.StatusOK, stateResponse(h.feed.State()))
}

func (h *Handler) getDisastersGeoJSON(c *gin.Context) {
	fc := toGeoJSON(h.feed.State().Records)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

// refreshDisasters runs a manual refresh synchronously and returns the
// resulting state. If a refresh is already in flight the current snapshot
// comes back instead.
func (h *Handler) refreshDisasters(c *gin.Context) {
	st := h.feed.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, stateResponse(st))
}

// streamDisasters pushes the full record list to the client on every
// successful refresh, as server-sent events.
func (h *Handler) streamDisasters(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case records, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("disasters", records)
			return true
		}
	})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

func (h *Handler) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.metrics.ChatRequests.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must not be blank"})
		return
	}

	sess := h.sessions.Get(req.SessionID)
	done := sess.Send(c.Request.Context(), req.Message)

	select {
	case <-c.Request.Context().Done():
		h.metrics.ChatRequests.WithLabelValues("failure").Inc()
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled"})
	case entry, ok := <-done:
		if !ok {
			h.metrics.ChatRequests.WithLabelValues("failure").Inc()
			c.JSON(http.StatusBadGateway, gin.H{
				"error":      "assistant unavailable",
				"session_id": sess.ID(),
			})
			return
		}
		h.metrics.ChatRequests.WithLabelValues("success").Inc()
		h.metrics.ChatRenderModes.WithLabelValues(entry.Mode.String()).Inc()
		c.JSON(http.StatusOK, gin.H{
			"session_id": sess.ID(),
			"reply":      entry,
		})
	}
}

func (h *Handler) getMessages(c *gin.Context) {
	sess, ok := h.sessions.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID(),
		"messages":   sess.Entries(),
		"awaiting":   sess.Awaiting(),
	})
}

// postReport accepts an emergency report and queues it; composition and SMS
// dispatch happen in the background.
func (h *Handler) postReport(c *gin.Context) {
	var sub report.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emergency_type and description are required"})
		return
	}
	h.reports.Submit(sub)
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
