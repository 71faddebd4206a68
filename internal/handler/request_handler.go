package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyvault/studyvault-api/internal/dto"
	"github.com/studyvault/studyvault-api/internal/models"
	appErrors "github.com/studyvault/studyvault-api/pkg/errors"
	"github.com/studyvault/studyvault-api/pkg/response"
)

type requestService interface {
	Submit(ctx context.Context, payload dto.SubmitMaterialRequest, clientID, remoteIP string) (*models.MaterialRequest, error)
}

// RequestHandler serves the public material-request intake endpoint.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// Submit godoc
// @Summary Submit a material request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitMaterialRequest true "Request"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	var payload dto.SubmitMaterialRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	record, err := h.service.Submit(c.Request.Context(), payload, c.ClientIP(), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, record, nil)
}
