package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsroom/app/auth"
	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/jobs"
	"github.com/lysyi3m/newsroom/app/tasks"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func NewHandler(store database.Store, articles ArticleService, editions EditionService,
	jobService JobService, feed FeedRenderer, issuer *auth.Issuer,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		store:     store,
		articles:  articles,
		editions:  editions,
		jobs:      jobService,
		feed:      feed,
		issuer:    issuer,
		scheduler: scheduler,
		version:   version,
		clock:     time.Now,
	}
}

// respondError maps domain errors onto status codes. Anything unrecognised
// is logged and reported as a 500.
func respondError(c *gin.Context, err error) {
	var validationErr *database.ValidationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"field":   validationErr.Field,
			"details": validationErr.Error(),
		})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "details": err.Error()})
	case errors.Is(err, jobs.ErrUnknownJob):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown job type", "details": err.Error()})
	case errors.Is(err, jobs.ErrJobRunning):
		c.JSON(http.StatusConflict, gin.H{"error": "Job is already running", "details": err.Error()})
	default:
		slog.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "details": err.Error()})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

func (h *Handler) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Newsroom",
		"version":     h.version,
		"description": "Scheduled newsroom: reporters draft articles from social posts, editors assemble editions",
		"endpoints": map[string]string{
			"reporters":      "/reporters",
			"editions":       "/editions",
			"daily_editions": "/daily-editions",
			"daily_feed":     "/daily-editions/feed.xml",
			"events":         "/events",
			"health":         "/health",
			"metrics":        "/metrics",
		},
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"status":    "ok",
		"timestamp": h.clock().In(time.Local).Format(time.RFC3339),
	}
	status := http.StatusOK

	if err := h.store.Ping(c.Request.Context()); err != nil {
		slog.Error("Store health check failed", "error", err)
		health["status"] = "degraded"
		health["store"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		health["store"] = "ok"
	}

	if h.scheduler != nil {
		health["scheduler"] = h.scheduler.Health()
	}

	c.JSON(status, health)
}
