package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeffreylongo/lodge-api/internal/models"
	"github.com/jeffreylongo/lodge-api/internal/service"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
	"github.com/jeffreylongo/lodge-api/pkg/response"
)

// AuthHandler exposes the admin login endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login exchanges admin credentials for an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "email and password required"))
		return
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Me returns the claims behind the presented token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"email": claims.Email}, nil)
}
