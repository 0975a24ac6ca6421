package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsroom/app/database"
)

// Advertisers see and manage only their own ads; admins manage all of them.
func ownsAd(c *gin.Context, ad *database.AdEntry) bool {
	claims := currentClaims(c)
	return claims.Role == database.RoleAdmin || ad.UserID == claims.Subject
}

func (h *Handler) ListAds(c *gin.Context) {
	ads, err := h.store.ListAds(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	visible := make([]database.AdEntry, 0, len(ads))
	for _, ad := range ads {
		if ownsAd(c, &ad) {
			visible = append(visible, ad)
		}
	}

	c.JSON(http.StatusOK, gin.H{"ads": visible, "total": len(visible)})
}

func (h *Handler) CreateAd(c *gin.Context) {
	var req adRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ad := &database.AdEntry{
		ID:        database.GenerateID("ad"),
		UserID:    currentClaims(c).Subject,
		CreatedAt: h.clock(),
	}
	if err := applyAd(ad, req, true); err != nil {
		respondError(c, err)
		return
	}

	if err := h.store.SaveAd(c.Request.Context(), ad); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ad)
}

func (h *Handler) UpdateAd(c *gin.Context) {
	var req adRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	ad, err := h.store.GetAd(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ownsAd(c, ad) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	if err := applyAd(ad, req, false); err != nil {
		respondError(c, err)
		return
	}

	if err := h.store.SaveAd(ctx, ad); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ad)
}

func (h *Handler) DeleteAd(c *gin.Context) {
	ctx := c.Request.Context()
	ad, err := h.store.GetAd(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ownsAd(c, ad) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	if err := h.store.DeleteAd(ctx, ad.ID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func applyAd(ad *database.AdEntry, req adRequest, create bool) error {
	if req.Name != nil {
		ad.Name = strings.TrimSpace(*req.Name)
	}
	if req.PromptContent != nil {
		ad.PromptContent = *req.PromptContent
	}
	setIfPresent(&ad.BidPrice, req.BidPrice)

	if create && ad.Name == "" {
		return &database.ValidationError{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(ad.PromptContent) == "" {
		return &database.ValidationError{Field: "promptContent", Message: "is required"}
	}
	if ad.BidPrice < 0 {
		return &database.ValidationError{Field: "bidPrice", Message: "must not be negative"}
	}
	return nil
}
