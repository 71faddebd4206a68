package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyvault/studyvault-api/internal/dto"
	"github.com/studyvault/studyvault-api/internal/models"
	"github.com/studyvault/studyvault-api/internal/search"
	appErrors "github.com/studyvault/studyvault-api/pkg/errors"
	"github.com/studyvault/studyvault-api/pkg/export"
)

var (
	pathCharRe   = regexp.MustCompile(`[^A-Za-z0-9-_ ]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

type adminDocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	FindByPath(ctx context.Context, path string) (*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]models.Document, error)
}

type materialStore interface {
	SaveStream(path string, r io.Reader) (string, error)
	Open(path string) (*os.File, error)
	Delete(path string) error
}

type downloadSigner interface {
	Generate(path string) (string, time.Time, error)
	Parse(token string) (string, time.Time, error)
}

// StorageLimits bounds accepted uploads.
type StorageLimits struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// DocumentService implements the admin-side catalog mutations plus the
// download path shared with the public side.
type DocumentService struct {
	repo      adminDocumentRepository
	store     materialStore
	signer    downloadSigner
	catalog   *CatalogService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	limits    StorageLimits
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
}

// NewDocumentService constructs a document service.
func NewDocumentService(repo adminDocumentRepository, store materialStore, signer downloadSigner, catalog *CatalogService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, limits StorageLimits) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if limits.MaxFileSizeBytes <= 0 {
		limits.MaxFileSizeBytes = 20 << 20
	}
	if len(limits.AllowedMIMEs) == 0 {
		limits.AllowedMIMEs = []string{"application/pdf"}
	}
	return &DocumentService{
		repo:      repo,
		store:     store,
		signer:    signer,
		catalog:   catalog,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		limits:    limits,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// Upload stores the file first and inserts the metadata row second. When the
// insert fails the stored file is removed best-effort and the insert error
// is reported unchanged.
func (s *DocumentService) Upload(ctx context.Context, meta dto.UploadDocumentRequest, filename string, size int64, file io.Reader, uploadedBy string) (*models.Document, error) {
	if err := s.validator.Struct(meta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing required metadata")
	}
	if file == nil || size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if size > s.limits.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d MB limit", s.limits.MaxFileSizeBytes>>20))
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	head = head[:n]
	mimeType := http.DetectContentType(head)
	if !s.mimeAllowed(mimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported file type %q", mimeType))
	}

	storagePath := buildStoragePath(meta.CourseCode, meta.CourseNumber, meta.Professor, filename, time.Now())

	if _, err := s.store.SaveStream(storagePath, io.MultiReader(bytes.NewReader(head), file)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	doc := &models.Document{
		Title:        strings.TrimSpace(meta.Title),
		CourseCode:   strings.TrimSpace(meta.CourseCode),
		CourseNumber: strings.TrimSpace(meta.CourseNumber),
		CourseName:   strings.TrimSpace(meta.CourseName),
		Professor:    strings.TrimSpace(meta.Professor),
		Date:         strings.TrimSpace(meta.Date),
		Term:         search.TermForDate(meta.Date),
		FilePath:     storagePath,
		MimeType:     mimeType,
		SizeBytes:    size,
		UploadedBy:   uploadedBy,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(storagePath); delErr != nil {
			s.logger.Error("failed to remove file after insert failure",
				zap.String("path", storagePath),
				zap.Error(delErr),
			)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document record")
	}

	if s.catalog != nil {
		s.catalog.InvalidateSnapshot(ctx)
	}
	if s.metrics != nil {
		s.metrics.IncUpload()
	}
	s.logger.Info("document uploaded",
		zap.String("id", doc.ID),
		zap.String("path", doc.FilePath),
		zap.Int64("size", doc.SizeBytes),
	)
	return doc, nil
}

// Patch updates any subset of the mutable metadata fields. The term label is
// recomputed whenever the date changes. Path and file are immutable.
func (s *DocumentService) Patch(ctx context.Context, key string, upd dto.UpdateDocumentRequest) (*models.Document, error) {
	doc, err := s.resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		doc.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.CourseCode != nil {
		doc.CourseCode = strings.TrimSpace(*upd.CourseCode)
	}
	if upd.CourseNumber != nil {
		doc.CourseNumber = strings.TrimSpace(*upd.CourseNumber)
	}
	if upd.CourseName != nil {
		doc.CourseName = strings.TrimSpace(*upd.CourseName)
	}
	if upd.Professor != nil {
		doc.Professor = strings.TrimSpace(*upd.Professor)
	}
	if upd.Date != nil {
		doc.Date = strings.TrimSpace(*upd.Date)
		doc.Term = search.TermForDate(doc.Date)
	}

	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
	}
	if s.catalog != nil {
		s.catalog.InvalidateSnapshot(ctx)
	}
	return doc, nil
}

// Delete removes the stored file first and the metadata row second. When the
// file removal fails the row is left intact and the error is surfaced.
func (s *DocumentService) Delete(ctx context.Context, key string) error {
	doc, err := s.resolve(ctx, key)
	if err != nil {
		return err
	}

	if err := s.store.Delete(doc.FilePath); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove stored file")
	}
	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document record")
	}
	if s.catalog != nil {
		s.catalog.InvalidateSnapshot(ctx)
	}
	s.logger.Info("document deleted", zap.String("id", doc.ID), zap.String("path", doc.FilePath))
	return nil
}

// DownloadURL issues a short-lived signed link for the document.
func (s *DocumentService) DownloadURL(ctx context.Context, key string) (*dto.DownloadLink, error) {
	doc, err := s.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(doc.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &dto.DownloadLink{URL: token, ExpiresAt: expiresAt.Unix()}, nil
}

// Download validates a signed token and opens the stored file. The returned
// document carries the filename hint; the caller owns closing the file.
func (s *DocumentService) Download(ctx context.Context, token string) (*os.File, *models.Document, error) {
	storagePath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	doc, err := s.repo.FindByPath(ctx, storagePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up document")
	}
	file, err := s.store.Open(doc.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}
	if s.metrics != nil {
		s.metrics.IncDownload()
	}
	return file, doc, nil
}

// Export renders the full catalog inventory as CSV or PDF.
func (s *DocumentService) Export(ctx context.Context, format string) ([]byte, string, error) {
	docs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}

	data := export.Dataset{
		Headers: []string{"Course Code", "Course Number", "Course Name", "Professor", "Date", "Term", "Title", "Path"},
	}
	for _, d := range docs {
		data.Rows = append(data.Rows, []string{
			d.CourseCode, d.CourseNumber, d.CourseName, d.Professor, d.Date, d.Term, d.Title, d.FilePath,
		})
	}

	switch strings.ToLower(format) {
	case "csv":
		out, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return out, "text/csv", nil
	case "pdf":
		out, err := s.pdf.Render(data, "Catalog Inventory")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// resolve looks the key up as a storage path first, then as a record
// identifier. Identifier hits are logged so path-based clients can be
// migrated over time.
func (s *DocumentService) resolve(ctx context.Context, key string) (*models.Document, error) {
	doc, err := s.repo.FindByPath(ctx, key)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up document")
	}

	doc, err = s.repo.FindByID(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up document")
	}
	s.logger.Info("document resolved by identifier", zap.String("id", doc.ID))
	return doc, nil
}

func (s *DocumentService) mimeAllowed(mimeType string) bool {
	for _, allowed := range s.limits.AllowedMIMEs {
		if mimeType == allowed {
			return true
		}
	}
	return false
}

// buildStoragePath derives the deterministic storage path
// code/number/professor/<unix>-<filename> from sanitized parts.
func buildStoragePath(code, number, professor, filename string, now time.Time) string {
	return path.Join(
		sanitizePathPart(code),
		sanitizePathPart(number),
		sanitizePathPart(professor),
		fmt.Sprintf("%d-%s", now.Unix(), sanitizePathPart(filename)),
	)
}

// sanitizePathPart strips everything outside [A-Za-z0-9-_ ] and collapses
// whitespace runs to single hyphens.
func sanitizePathPart(raw string) string {
	cleaned := pathCharRe.ReplaceAllString(raw, "")
	cleaned = whitespaceRe.ReplaceAllString(strings.TrimSpace(cleaned), "-")
	return cleaned
}
