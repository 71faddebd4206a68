package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyvault/studyvault-api/internal/dto"
	"github.com/studyvault/studyvault-api/internal/models"
	appErrors "github.com/studyvault/studyvault-api/pkg/errors"
)

type mockDocumentRepo struct {
	docsByPath map[string]*models.Document
	docsByID   map[string]*models.Document
	createErr  error
	created    []*models.Document
	updated    []*models.Document
	deletedIDs []string
	all        []models.Document
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{
		docsByPath: make(map[string]*models.Document),
		docsByID:   make(map[string]*models.Document),
	}
}

func (m *mockDocumentRepo) add(doc *models.Document) {
	m.docsByPath[doc.FilePath] = doc
	m.docsByID[doc.ID] = doc
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	doc.ID = fmt.Sprintf("doc-%d", len(m.created)+1)
	m.created = append(m.created, doc)
	m.add(doc)
	return nil
}

func (m *mockDocumentRepo) FindByID(ctx context.Context, id string) (*models.Document, error) {
	if doc, ok := m.docsByID[id]; ok {
		return doc, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDocumentRepo) FindByPath(ctx context.Context, path string) (*models.Document, error) {
	if doc, ok := m.docsByPath[path]; ok {
		return doc, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDocumentRepo) Update(ctx context.Context, doc *models.Document) error {
	m.updated = append(m.updated, doc)
	return nil
}

func (m *mockDocumentRepo) Delete(ctx context.Context, id string) error {
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockDocumentRepo) ListAll(ctx context.Context) ([]models.Document, error) {
	return m.all, nil
}

type mockStore struct {
	saved     map[string][]byte
	saveErr   error
	deleteErr error
	deleted   []string
}

func newMockStore() *mockStore {
	return &mockStore{saved: make(map[string][]byte)}
}

func (m *mockStore) SaveStream(path string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return "", err
	}
	m.saved[path] = buf.Bytes()
	return path, nil
}

func (m *mockStore) Open(path string) (*os.File, error) {
	return os.Open(os.DevNull)
}

func (m *mockStore) Delete(path string) error {
	m.deleted = append(m.deleted, path)
	return m.deleteErr
}

type stubSigner struct {
	parsedPath string
	parseErr   error
}

func (s *stubSigner) Generate(path string) (string, time.Time, error) {
	return "signed-" + path, time.Now().Add(time.Minute), nil
}

func (s *stubSigner) Parse(token string) (string, time.Time, error) {
	if s.parseErr != nil {
		return "", time.Time{}, s.parseErr
	}
	return s.parsedPath, time.Now().Add(time.Minute), nil
}

func newTestDocumentService(repo *mockDocumentRepo, store *mockStore, signer *stubSigner) *DocumentService {
	return NewDocumentService(repo, store, signer, nil, nil, validator.New(), zap.NewNop(), StorageLimits{})
}

func pdfBody(size int) []byte {
	body := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), size)...)
	return body
}

func uploadMeta() dto.UploadDocumentRequest {
	return dto.UploadDocumentRequest{
		Title:        "Midterm Review",
		CourseCode:   "CS",
		CourseNumber: "1113",
		CourseName:   "Intro to Programming",
		Professor:    "Alice Smith",
		Date:         "2024-10-01",
	}
}

func TestUploadStoresFileAndRecord(t *testing.T) {
	repo := newMockDocumentRepo()
	store := newMockStore()
	svc := newTestDocumentService(repo, store, &stubSigner{})

	body := pdfBody(1024)
	doc, err := svc.Upload(context.Background(), uploadMeta(), "review.pdf", int64(len(body)), bytes.NewReader(body), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Fall 2024", doc.Term)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.True(t, strings.HasPrefix(doc.FilePath, "CS/1113/Alice-Smith/"), doc.FilePath)
	assert.Equal(t, body, store.saved[doc.FilePath])
	require.Len(t, repo.created, 1)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	repo := newMockDocumentRepo()
	store := newMockStore()
	svc := newTestDocumentService(repo, store, &stubSigner{})

	body := []byte("just plain text, definitely not a pdf")
	_, err := svc.Upload(context.Background(), uploadMeta(), "notes.txt", int64(len(body)), bytes.NewReader(body), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.saved)
}

func TestUploadRejectsOversize(t *testing.T) {
	repo := newMockDocumentRepo()
	store := newMockStore()
	svc := newTestDocumentService(repo, store, &stubSigner{})

	_, err := svc.Upload(context.Background(), uploadMeta(), "big.pdf", 21<<20, bytes.NewReader(pdfBody(10)), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadMissingMetadata(t *testing.T) {
	repo := newMockDocumentRepo()
	store := newMockStore()
	svc := newTestDocumentService(repo, store, &stubSigner{})

	meta := uploadMeta()
	meta.Professor = ""
	body := pdfBody(10)
	_, err := svc.Upload(context.Background(), meta, "review.pdf", int64(len(body)), bytes.NewReader(body), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadCompensatesOnInsertFailure(t *testing.T) {
	repo := newMockDocumentRepo()
	repo.createErr = fmt.Errorf("insert failed")
	store := newMockStore()
	svc := newTestDocumentService(repo, store, &stubSigner{})

	body := pdfBody(10)
	_, err := svc.Upload(context.Background(), uploadMeta(), "review.pdf", int64(len(body)), bytes.NewReader(body), "u1")
	require.Error(t, err)
	require.Len(t, store.deleted, 1)
	assert.Contains(t, store.deleted[0], "CS/1113/Alice-Smith/")
}

func TestPatchRecomputesTermOnDateChange(t *testing.T) {
	repo := newMockDocumentRepo()
	existing := &models.Document{ID: "doc-1", FilePath: "cs/1113/p/1-f.pdf", Date: "2024-10-01", Term: "Fall 2024"}
	repo.add(existing)
	svc := newTestDocumentService(repo, newMockStore(), &stubSigner{})

	newDate := "2025-02-10"
	doc, err := svc.Patch(context.Background(), "doc-1", dto.UpdateDocumentRequest{Date: &newDate})
	require.NoError(t, err)
	assert.Equal(t, "Spring 2025", doc.Term)
	require.Len(t, repo.updated, 1)
}

func TestPatchResolvesByPathFirst(t *testing.T) {
	repo := newMockDocumentRepo()
	repo.add(&models.Document{ID: "doc-1", FilePath: "cs/1113/p/1-f.pdf", Title: "old"})
	svc := newTestDocumentService(repo, newMockStore(), &stubSigner{})

	title := "new title"
	doc, err := svc.Patch(context.Background(), "cs/1113/p/1-f.pdf", dto.UpdateDocumentRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "new title", doc.Title)
}

func TestPatchUnknownKey(t *testing.T) {
	svc := newTestDocumentService(newMockDocumentRepo(), newMockStore(), &stubSigner{})

	title := "x"
	_, err := svc.Patch(context.Background(), "missing", dto.UpdateDocumentRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteFileErrorLeavesRow(t *testing.T) {
	repo := newMockDocumentRepo()
	repo.add(&models.Document{ID: "doc-1", FilePath: "cs/1113/p/1-f.pdf"})
	store := newMockStore()
	store.deleteErr = fmt.Errorf("storage unavailable")
	svc := newTestDocumentService(repo, store, &stubSigner{})

	err := svc.Delete(context.Background(), "doc-1")
	require.Error(t, err)
	assert.Empty(t, repo.deletedIDs)
}

func TestDeleteRemovesFileThenRow(t *testing.T) {
	repo := newMockDocumentRepo()
	repo.add(&models.Document{ID: "doc-1", FilePath: "cs/1113/p/1-f.pdf"})
	store := newMockStore()
	svc := newTestDocumentService(repo, store, &stubSigner{})

	require.NoError(t, svc.Delete(context.Background(), "doc-1"))
	assert.Equal(t, []string{"cs/1113/p/1-f.pdf"}, store.deleted)
	assert.Equal(t, []string{"doc-1"}, repo.deletedIDs)
}

func TestDownloadURL(t *testing.T) {
	repo := newMockDocumentRepo()
	repo.add(&models.Document{ID: "doc-1", FilePath: "cs/1113/p/1-f.pdf"})
	svc := newTestDocumentService(repo, newMockStore(), &stubSigner{})

	link, err := svc.DownloadURL(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "signed-cs/1113/p/1-f.pdf", link.URL)
}

func TestDownloadInvalidToken(t *testing.T) {
	svc := newTestDocumentService(newMockDocumentRepo(), newMockStore(), &stubSigner{parseErr: fmt.Errorf("expired")})

	_, _, err := svc.Download(context.Background(), "bad-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportCSV(t *testing.T) {
	repo := newMockDocumentRepo()
	repo.all = []models.Document{{CourseCode: "CS", CourseNumber: "1113", Professor: "Alice Smith", Date: "2024-10-01", Term: "Fall 2024", Title: "Review", FilePath: "cs/1113/p/1-f.pdf"}}
	svc := newTestDocumentService(repo, newMockStore(), &stubSigner{})

	out, contentType, err := svc.Export(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(out), "Alice Smith")
}

func TestExportUnknownFormat(t *testing.T) {
	svc := newTestDocumentService(newMockDocumentRepo(), newMockStore(), &stubSigner{})

	_, _, err := svc.Export(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
