package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsroom/app/database"
)

const feedEditionCount = 20

func (h *Handler) ListReporters(c *gin.Context) {
	reporters, err := h.store.ListReporters(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reporters": reporters, "total": len(reporters)})
}

func (h *Handler) GetReporter(c *gin.Context) {
	reporter, err := h.store.GetReporter(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reporter)
}

func (h *Handler) CreateReporter(c *gin.Context) {
	var req reporterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if req.Prompt == nil || strings.TrimSpace(*req.Prompt) == "" {
		respondError(c, &database.ValidationError{Field: "prompt", Message: "is required"})
		return
	}

	ctx := c.Request.Context()
	reporter := &database.Reporter{
		ID:        strings.TrimSpace(req.ID),
		Beats:     req.Beats,
		Prompt:    *req.Prompt,
		Enabled:   true,
		CreatedAt: h.clock(),
	}
	if reporter.ID == "" {
		reporter.ID = database.GenerateID("reporter")
	} else if _, err := h.store.GetReporter(ctx, reporter.ID); err == nil {
		respondError(c, &database.ValidationError{Field: "id", Message: "already exists"})
		return
	}
	if reporter.Beats == nil {
		reporter.Beats = []string{}
	}
	if req.Enabled != nil {
		reporter.Enabled = *req.Enabled
	}

	if err := h.store.SaveReporter(ctx, reporter); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reporter)
}

func (h *Handler) UpdateReporter(c *gin.Context) {
	var req reporterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	reporter, err := h.store.GetReporter(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Beats != nil {
		reporter.Beats = req.Beats
	}
	if req.Prompt != nil {
		if strings.TrimSpace(*req.Prompt) == "" {
			respondError(c, &database.ValidationError{Field: "prompt", Message: "must not be empty"})
			return
		}
		reporter.Prompt = *req.Prompt
	}
	setIfPresent(&reporter.Enabled, req.Enabled)

	if err := h.store.SaveReporter(ctx, reporter); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reporter)
}

// DeleteReporter leaves the reporter's articles in place.
func (h *Handler) DeleteReporter(c *gin.Context) {
	if err := h.store.DeleteReporter(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListReporterArticles(c *gin.Context) {
	articles, err := h.store.RecentArticles(c.Request.Context(), c.Param("id"), parseLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"articles": articles, "total": len(articles)})
}

func (h *Handler) GenerateReporterArticles(c *gin.Context) {
	reporterID := c.Param("id")

	articles, err := h.articles.GenerateArticlesForReporter(c.Request.Context(), reporterID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reporterId":    reporterID,
		"articles":      articles,
		"totalArticles": len(articles),
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	article, err := h.store.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (h *Handler) GenerateArticlesFromEvents(c *gin.Context) {
	byReporter, err := h.articles.GenerateArticlesFromEvents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	total := 0
	for _, articles := range byReporter {
		total += len(articles)
	}

	c.JSON(http.StatusOK, gin.H{"results": byReporter, "totalArticles": total})
}

func (h *Handler) ListEditions(c *gin.Context) {
	editions, err := h.store.RecentEditions(c.Request.Context(), parseLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"editions": editions, "total": len(editions)})
}

// GetEdition returns the edition with its stories resolved; dangling story
// ids are dropped from the article list.
func (h *Handler) GetEdition(c *gin.Context) {
	ctx := c.Request.Context()
	edition, err := h.store.GetEdition(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	articles, err := h.editions.HydrateEdition(ctx, edition)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"edition": edition, "articles": articles})
}

func (h *Handler) ListDailyEditions(c *gin.Context) {
	editions, err := h.store.RecentDailyEditions(c.Request.Context(), parseLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dailyEditions": editions, "total": len(editions)})
}

func (h *Handler) GetDailyEdition(c *gin.Context) {
	edition, err := h.store.GetDailyEdition(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, edition)
}

func (h *Handler) GetDailyFeed(c *gin.Context) {
	editions, err := h.store.RecentDailyEditions(c.Request.Context(), feedEditionCount)
	if err != nil {
		respondError(c, err)
		return
	}

	rss := h.feed.Run(editions, h.clock())

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(editions)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.store.RecentEvents(c.Request.Context(), parseLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}

func (h *Handler) GenerateEvents(c *gin.Context) {
	events, err := h.editions.GenerateEvents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "totalEvents": len(events)})
}
