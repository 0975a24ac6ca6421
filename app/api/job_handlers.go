package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsroom/app/jobs"
)

// RunCronJob runs a job behind its period guard. A run that is skipped, or
// that loses the claim to a concurrent run, still answers 200.
func (h *Handler) RunCronJob(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.jobs.RunScheduled(jobContext(c), name)
		if errors.Is(err, jobs.ErrJobRunning) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"skipped": true,
				"message": fmt.Sprintf("Job %s is already running", name),
			})
			return
		}
		if err != nil {
			slog.Error("Cron job failed", "job", name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   fmt.Sprintf("Job %s failed", name),
				"details": err.Error(),
			})
			return
		}

		if result.Skipped {
			c.JSON(http.StatusOK, gin.H{
				"success":                 true,
				"skipped":                 true,
				"nextGenerationInMinutes": result.NextGenerationInMinutes,
				"message":                 fmt.Sprintf("Job %s is not due yet", name),
			})
			return
		}

		c.JSON(http.StatusOK, cronResponse(result))
	}
}

// jobContext keeps a run alive when the caller disconnects; the
// orchestrator bounds it with its own timeout.
func jobContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func cronResponse(result *jobs.Result) gin.H {
	response := gin.H{"success": true}

	switch result.Job {
	case jobs.JobReporter:
		response["message"] = fmt.Sprintf("Generated %d articles", result.TotalArticles)
		response["totalArticles"] = result.TotalArticles
	case jobs.JobNewspaper:
		response["message"] = "Generated hourly edition"
		response["hourlyEditionId"] = result.HourlyEditionID
	case jobs.JobDaily:
		response["message"] = "Generated daily edition"
		response["dailyEditionId"] = result.DailyEditionID
	case jobs.JobEvents:
		response["message"] = fmt.Sprintf("Generated %d events", result.TotalEvents)
		response["totalEvents"] = result.TotalEvents
	}
	return response
}

// TriggerJob runs a job immediately, ignoring its period.
func (h *Handler) TriggerJob(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.jobs.Trigger(jobContext(c), req.JobType)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Job %s completed", req.JobType),
		"result":  result,
	})
}

func (h *Handler) ListJobs(c *gin.Context) {
	statuses, err := h.jobs.Statuses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": statuses})
}
