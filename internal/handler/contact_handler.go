package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeffreylongo/lodge-api/internal/models"
	"github.com/jeffreylongo/lodge-api/internal/service"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
	"github.com/jeffreylongo/lodge-api/pkg/response"
)

// ContactHandler turns contact form submissions into mailto links.
type ContactHandler struct {
	contact *service.ContactService
}

// NewContactHandler constructs handler.
func NewContactHandler(contact *service.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

// Mailto validates the submission and returns the composed mailto URL.
func (h *ContactHandler) Mailto(c *gin.Context) {
	var req models.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid contact payload"))
		return
	}

	resp, err := h.contact.BuildMailto(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
