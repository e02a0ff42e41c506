package handlers

import (
	"errors"
	"net/http"

	"groupbet/internal/auth"
	"groupbet/internal/models"
	"groupbet/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AuthHandler issues tokens. User administration proper lives outside this
// service; this endpoint only attaches an identity to requests.
type AuthHandler struct {
	repo           *repository.Repository
	initialBalance decimal.Decimal
}

func NewAuthHandler(repo *repository.Repository, initialBalance decimal.Decimal) *AuthHandler {
	return &AuthHandler{
		repo:           repo,
		initialBalance: initialBalance,
	}
}

// Login exchanges a username for a JWT, creating the user on first login
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.repo.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		user = &models.User{
			Username: req.Username,
			Balance:  h.initialBalance,
		}
		if err := h.repo.CreateUser(ctx, user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
			return
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
