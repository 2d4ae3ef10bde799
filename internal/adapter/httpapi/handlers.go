package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"soundlink/internal/reconnect"
	"soundlink/internal/shared"
)

type handlers struct {
	store       *reconnect.Store
	log         *slog.Logger
	baseDelayMs float64
}

type planRequest struct {
	ClientID    string            `json:"clientId" binding:"required"`
	Reason      string            `json:"reason"`
	History     reconnect.History `json:"history"`
	BaseDelayMs float64           `json:"baseDelayMs" binding:"omitempty,gt=0"`
}

type planResponse struct {
	ClientID         string             `json:"clientId"`
	Analysis         reconnect.Analysis `json:"analysis"`
	Schedule         reconnect.Schedule `json:"schedule"`
	PredictedSuccess float64            `json:"predictedSuccess"`
}

// plan runs the full analysis pipeline for one disconnect event and returns
// the retry plan the client should follow.
func (h *handlers) plan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.History.RecentFailures < 0 || req.History.LongestConnectionMs < 0 || req.History.ServerRestarts < 0 {
		badRequest(c, shared.Validationf("history counters must be non-negative"))
		return
	}

	base := req.BaseDelayMs
	if base <= 0 {
		base = h.baseDelayMs
	}

	analysis := reconnect.Analyze(req.Reason, req.History)
	c.JSON(http.StatusOK, planResponse{
		ClientID:         req.ClientID,
		Analysis:         analysis,
		Schedule:         reconnect.BuildSchedule(analysis, base),
		PredictedSuccess: h.store.PredictSuccess(req.ClientID, analysis.Strategy),
	})
}

type attemptRequest struct {
	ClientID   string  `json:"clientId" binding:"required"`
	Attempt    int     `json:"attempt" binding:"required,gte=1"`
	Success    bool    `json:"success"`
	DurationMs float64 `json:"durationMs" binding:"omitempty,gte=0"`
}

// trackAttempt records one reconnection outcome.
func (h *handlers) trackAttempt(c *gin.Context) {
	var req attemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.store.Track(req.ClientID, req.Attempt, req.Success, req.DurationMs)
	c.JSON(http.StatusAccepted, gin.H{"tracked": true})
}

func (h *handlers) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":          h.store.Stats(),
		"trackedClients": h.store.ClientCount(),
	})
}

func (h *handlers) recommendations(c *gin.Context) {
	clientID := c.Param("id")
	recs := h.store.Recommendations(clientID)
	if recs == nil {
		recs = []reconnect.Recommendation{}
	}
	c.JSON(http.StatusOK, gin.H{"clientId": clientID, "recommendations": recs})
}

func (h *handlers) prediction(c *gin.Context) {
	clientID := c.Param("id")

	strategy := reconnect.StrategyAdaptiveTiming
	if raw := c.Query("strategy"); raw != "" {
		parsed, ok := reconnect.ParseStrategy(raw)
		if !ok {
			badRequest(c, shared.Validationf("unknown strategy %q", raw))
			return
		}
		strategy = parsed
	}

	c.JSON(http.StatusOK, gin.H{
		"clientId":         clientID,
		"strategy":         strategy,
		"predictedSuccess": h.store.PredictSuccess(clientID, strategy),
	})
}

func (h *handlers) resetClient(c *gin.Context) {
	clientID := c.Param("id")
	if !h.store.Reset(clientID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown client " + clientID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
