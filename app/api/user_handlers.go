package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsroom/app/auth"
	"github.com/lysyi3m/newsroom/app/database"
)

// Register creates a reader account. The very first account is made admin
// so a fresh installation can be administered.
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		respondError(c, &database.ValidationError{Field: "email", Message: "must be a valid address"})
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		respondError(c, &database.ValidationError{Field: "password", Message: "must be at least 8 characters"})
		return
	}
	if len(req.Password) > auth.MaxPasswordLength {
		respondError(c, &database.ValidationError{Field: "password", Message: "must be at most 72 bytes"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	user := &database.User{
		ID:           database.GenerateID("user"),
		Email:        email,
		PasswordHash: hash,
		Role:         database.RoleReader,
		CreatedAt:    h.clock(),
	}
	err = h.store.CreateUser(c.Request.Context(), user, database.RoleAdmin)
	if errors.Is(err, database.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if len(req.Password) > auth.MaxPasswordLength {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	now := h.clock()
	user.LastLoginAt = &now
	if err := h.store.SaveUser(ctx, user); err != nil {
		respondError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user *database.User) {
	token, err := h.issuer.Issue(user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(status, gin.H{"token": token, "user": user})
}

func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.store.GetUser(c.Request.Context(), currentClaims(c).Subject)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

func (h *Handler) UpdateUserRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.Role.Valid() {
		respondError(c, &database.ValidationError{Field: "role", Message: "must be one of admin, editor, advertiser, reader"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUser(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	user.Role = req.Role
	if err := h.store.SaveUser(ctx, user); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
