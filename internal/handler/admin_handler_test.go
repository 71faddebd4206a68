package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyvault/studyvault-api/internal/dto"
	"github.com/studyvault/studyvault-api/internal/middleware"
	"github.com/studyvault/studyvault-api/internal/models"
)

type documentServiceMock struct {
	uploadResp   *models.Document
	uploadErr    error
	uploadCalled bool
	lastMeta     dto.UploadDocumentRequest
	lastFilename string
	patchResp    *models.Document
	patchErr     error
	lastPatchKey string
	deleteErr    error
	lastDelKey   string
	exportBytes  []byte
	exportType   string
}

func (m *documentServiceMock) Upload(ctx context.Context, meta dto.UploadDocumentRequest, filename string, size int64, file io.Reader, uploadedBy string) (*models.Document, error) {
	m.uploadCalled = true
	m.lastMeta = meta
	m.lastFilename = filename
	return m.uploadResp, m.uploadErr
}

func (m *documentServiceMock) Patch(ctx context.Context, key string, upd dto.UpdateDocumentRequest) (*models.Document, error) {
	m.lastPatchKey = key
	return m.patchResp, m.patchErr
}

func (m *documentServiceMock) Delete(ctx context.Context, key string) error {
	m.lastDelKey = key
	return m.deleteErr
}

func (m *documentServiceMock) Export(ctx context.Context, format string) ([]byte, string, error) {
	return m.exportBytes, m.exportType, nil
}

type requestAdminMock struct {
	listResp  []models.MaterialRequest
	deletedID string
}

func (m *requestAdminMock) List(ctx context.Context) ([]models.MaterialRequest, error) {
	return m.listResp, nil
}

func (m *requestAdminMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func adminContext(w *httptest.ResponseRecorder) (*gin.Context, *gin.Engine) {
	c, r := gin.CreateTestContext(w)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	return c, r
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestAdminHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{uploadResp: &models.Document{ID: "doc-1"}}
	handler := NewAdminHandler(mockSvc, &requestAdminMock{})

	body, contentType := multipartUpload(t, map[string]string{
		"course_code":   "CS",
		"course_number": "1113",
		"professor":     "Alice Smith",
		"date":          "2024-10-01",
	}, "review.pdf", []byte("%PDF-1.4 fake"))

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/admin/documents", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	handler.UploadDocument(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.uploadCalled)
	assert.Equal(t, "CS", mockSvc.lastMeta.CourseCode)
	assert.Equal(t, "review.pdf", mockSvc.lastFilename)
}

func TestAdminHandlerUploadMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAdminHandler(&documentServiceMock{}, &requestAdminMock{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("course_code", "CS"))
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/admin/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req

	handler.UploadDocument(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandlerPatchUsesWildcardKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{patchResp: &models.Document{ID: "doc-1"}}
	handler := NewAdminHandler(mockSvc, &requestAdminMock{})

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/admin/documents/cs/1113/p/1-f.pdf", bytes.NewBufferString(`{"title":"new"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "key", Value: "/cs/1113/p/1-f.pdf"}}

	handler.PatchDocument(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cs/1113/p/1-f.pdf", mockSvc.lastPatchKey)
}

func TestAdminHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{}
	handler := NewAdminHandler(mockSvc, &requestAdminMock{})

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/admin/documents/doc-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "key", Value: "/doc-1"}}

	handler.DeleteDocument(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "doc-1", mockSvc.lastDelKey)
}

func TestAdminHandlerListRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	requests := &requestAdminMock{listResp: []models.MaterialRequest{{ID: "r1", Course: "CS 1113"}}}
	handler := NewAdminHandler(&documentServiceMock{}, requests)

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/admin/requests", nil)
	c.Request = req

	handler.ListRequests(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CS 1113")
}

func TestAdminHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{exportBytes: []byte("a,b\n"), exportType: "text/csv"}
	handler := NewAdminHandler(mockSvc, &requestAdminMock{})

	w := httptest.NewRecorder()
	c, _ := adminContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/admin/documents/export?format=csv", nil)
	c.Request = req

	handler.ExportCatalog(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "catalog.csv")
}
