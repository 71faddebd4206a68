package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studyvault/studyvault-api/internal/dto"
	"github.com/studyvault/studyvault-api/internal/models"
	appErrors "github.com/studyvault/studyvault-api/pkg/errors"
	"github.com/studyvault/studyvault-api/pkg/response"
)

type adminDocumentService interface {
	Upload(ctx context.Context, meta dto.UploadDocumentRequest, filename string, size int64, file io.Reader, uploadedBy string) (*models.Document, error)
	Patch(ctx context.Context, key string, upd dto.UpdateDocumentRequest) (*models.Document, error)
	Delete(ctx context.Context, key string) error
	Export(ctx context.Context, format string) ([]byte, string, error)
}

type adminRequestService interface {
	List(ctx context.Context) ([]models.MaterialRequest, error)
	Delete(ctx context.Context, id string) error
}

// AdminHandler serves the authenticated console endpoints.
type AdminHandler struct {
	documents adminDocumentService
	requests  adminRequestService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(documents adminDocumentService, requests adminRequestService) *AdminHandler {
	return &AdminHandler{documents: documents, requests: requests}
}

// UploadDocument godoc
// @Summary Upload a catalog document
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Param course_code formData string true "Course code"
// @Param course_number formData string true "Course number"
// @Param professor formData string true "Professor"
// @Param date formData string true "Date (YYYY-MM-DD)"
// @Param title formData string false "Title"
// @Param course_name formData string false "Course name"
// @Param file formData file true "PDF file"
// @Success 201 {object} response.Envelope
// @Router /admin/documents [post]
func (h *AdminHandler) UploadDocument(c *gin.Context) {
	var meta dto.UploadDocumentRequest
	if err := c.ShouldBind(&meta); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid upload payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doc, err := h.documents.Upload(c.Request.Context(), meta, fileHeader.Filename, fileHeader.Size, src, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, doc, nil)
}

// PatchDocument godoc
// @Summary Update document metadata
// @Tags Admin
// @Accept json
// @Produce json
// @Param key path string true "Storage path or document id"
// @Param payload body dto.UpdateDocumentRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /admin/documents/{key} [patch]
func (h *AdminHandler) PatchDocument(c *gin.Context) {
	key := documentKey(c)
	if key == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "document key is required"))
		return
	}
	var upd dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&upd); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid update payload"))
		return
	}
	doc, err := h.documents.Patch(c.Request.Context(), key, upd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// DeleteDocument godoc
// @Summary Delete a document and its stored file
// @Tags Admin
// @Produce json
// @Param key path string true "Storage path or document id"
// @Success 204
// @Router /admin/documents/{key} [delete]
func (h *AdminHandler) DeleteDocument(c *gin.Context) {
	key := documentKey(c)
	if key == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "document key is required"))
		return
	}
	if err := h.documents.Delete(c.Request.Context(), key); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportCatalog godoc
// @Summary Export the catalog inventory
// @Tags Admin
// @Produce json
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Router /admin/documents/export [get]
func (h *AdminHandler) ExportCatalog(c *gin.Context) {
	out, contentType, err := h.documents.Export(c.Request.Context(), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ext := "csv"
	if contentType == "application/pdf" {
		ext = "pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="catalog.`+ext+`"`)
	c.Data(http.StatusOK, contentType, out)
}

// ListRequests godoc
// @Summary List material requests
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/requests [get]
func (h *AdminHandler) ListRequests(c *gin.Context) {
	requests, err := h.requests.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// DeleteRequest godoc
// @Summary Delete a handled material request
// @Tags Admin
// @Produce json
// @Param id path string true "Request id"
// @Success 204
// @Router /admin/requests/{id} [delete]
func (h *AdminHandler) DeleteRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "request id is required"))
		return
	}
	if err := h.requests.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// documentKey reads the wildcard path parameter, which may itself contain
// slashes when the key is a storage path.
func documentKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}
