package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetEditor(c *gin.Context) {
	editor, err := h.store.GetEditor(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, editor)
}

// UpdateEditor applies a partial update. Fields left out of the body keep
// their stored values.
func (h *Handler) UpdateEditor(c *gin.Context) {
	var req editorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	editor, err := h.store.GetEditor(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	setIfPresent(&editor.Bio, req.Bio)
	setIfPresent(&editor.Prompt, req.Prompt)
	setIfPresent(&editor.ModelName, req.ModelName)
	setIfPresent(&editor.MessageSliceCount, req.MessageSliceCount)
	setIfPresent(&editor.ArticleGenerationPeriodMinutes, req.ArticleGenerationPeriodMinutes)
	setIfPresent(&editor.EventGenerationPeriodMinutes, req.EventGenerationPeriodMinutes)
	setIfPresent(&editor.EditionGenerationPeriodMinutes, req.EditionGenerationPeriodMinutes)
	setIfPresent(&editor.DailyGenerationPeriodMinutes, req.DailyGenerationPeriodMinutes)

	if err := editor.Validate(); err != nil {
		respondError(c, err)
		return
	}

	if err := h.store.SaveEditor(ctx, editor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, editor)
}

func setIfPresent[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
