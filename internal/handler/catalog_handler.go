package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studyvault/studyvault-api/internal/dto"
	"github.com/studyvault/studyvault-api/internal/listing"
	"github.com/studyvault/studyvault-api/internal/models"
	appErrors "github.com/studyvault/studyvault-api/pkg/errors"
	"github.com/studyvault/studyvault-api/pkg/response"
)

type catalogService interface {
	Search(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	Browse(ctx context.Context, st listing.State) (listing.Page, error)
	Options(ctx context.Context, code, number string) (listing.Options, error)
}

type downloadService interface {
	DownloadURL(ctx context.Context, key string) (*dto.DownloadLink, error)
	Download(ctx context.Context, token string) (*os.File, *models.Document, error)
}

// CatalogHandler serves the public catalog endpoints.
type CatalogHandler struct {
	catalog   catalogService
	downloads downloadService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(catalog catalogService, downloads downloadService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, downloads: downloads}
}

// Search godoc
// @Summary Search the catalog
// @Tags Catalog
// @Produce json
// @Param course_code query string false "Exact course code"
// @Param course_number query string false "Exact course number"
// @Param professor query string false "Exact professor"
// @Param q query string false "Free-text query"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	filter := models.DocumentFilter{
		CourseCode:   c.Query("course_code"),
		CourseNumber: c.Query("course_number"),
		Professor:    c.Query("professor"),
		Query:        c.Query("q"),
	}
	docs, err := h.catalog.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Browse godoc
// @Summary Browse the catalog with filter, sort, and pagination
// @Tags Catalog
// @Produce json
// @Param course_code query string false "Exact course code"
// @Param course_number query string false "Exact course number"
// @Param professor query string false "Exact professor"
// @Param search query string false "Soft search text"
// @Param sort query string false "Sort key (course_code, professor, date)"
// @Param order query string false "asc or desc"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (25, 50, 100)"
// @Success 200 {object} response.Envelope
// @Router /documents/browse [get]
func (h *CatalogHandler) Browse(c *gin.Context) {
	st := listing.State{
		CourseCode:   c.Query("course_code"),
		CourseNumber: c.Query("course_number"),
		Professor:    c.Query("professor"),
		Search:       c.Query("search"),
		Sort:         listing.SortKey(c.DefaultQuery("sort", string(listing.SortDate))),
		Ascending:    c.Query("order") == "asc",
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", listing.DefaultPageSize),
	}
	page, err := h.catalog.Browse(c.Request.Context(), st)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Rows, &page.Pagination)
}

// Options godoc
// @Summary Cascading filter options
// @Tags Catalog
// @Produce json
// @Param course_code query string false "Selected course code"
// @Param course_number query string false "Selected course number"
// @Success 200 {object} response.Envelope
// @Router /documents/options [get]
func (h *CatalogHandler) Options(c *gin.Context) {
	opts, err := h.catalog.Options(c.Request.Context(), c.Query("course_code"), c.Query("course_number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, opts, nil)
}

// DownloadURL godoc
// @Summary Issue a short-lived signed download link
// @Tags Catalog
// @Produce json
// @Param key query string true "Storage path or document id"
// @Success 200 {object} response.Envelope
// @Router /documents/download-url [get]
func (h *CatalogHandler) DownloadURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "key is required"))
		return
	}
	link, err := h.downloads.DownloadURL(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Stream a document via a signed token
// @Tags Catalog
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /download [get]
func (h *CatalogHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, doc, err := h.downloads.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	filename := path.Base(doc.FilePath)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", doc.MimeType)
	if doc.SizeBytes > 0 {
		c.Header("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	}
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
