package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyvault/studyvault-api/internal/models"
	"github.com/studyvault/studyvault-api/internal/search"
)

const documentColumns = "id, title, course_code, course_number, course_name, professor, date, term, file_path, mime_type, size_bytes, uploaded_by, created_at, updated_at"

// searchableColumns are the fields every normalized pattern is OR-matched
// against as a case-insensitive substring.
var searchableColumns = []string{"title", "professor", "course_name", "course_code", "course_number", "file_path"}

// DocumentRepository handles persistence for catalogued materials.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository instantiates a document repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Search returns documents matching the exact filters ANDed with the
// normalized query's OR-group, ordered by date descending. The whole
// matching set is returned; pagination is a presentation concern.
func (r *DocumentRepository) Search(ctx context.Context, filter models.DocumentFilter, query search.Query) ([]models.Document, error) {
	base := "SELECT " + documentColumns + " FROM documents WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.CourseCode != "" {
		conditions = append(conditions, fmt.Sprintf("course_code = $%d", len(args)+1))
		args = append(args, filter.CourseCode)
	}
	if filter.CourseNumber != "" {
		conditions = append(conditions, fmt.Sprintf("course_number = $%d", len(args)+1))
		args = append(args, filter.CourseNumber)
	}
	if filter.Professor != "" {
		conditions = append(conditions, fmt.Sprintf("professor = $%d", len(args)+1))
		args = append(args, filter.Professor)
	}
	if query.Term != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(term) LIKE $%d", len(args)+1))
		args = append(args, "%"+query.Term+"%")
	}
	if group, groupArgs := patternGroup(query.Patterns, len(args)); group != "" {
		conditions = append(conditions, group)
		args = append(args, groupArgs...)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY date DESC"

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, base, args...); err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return docs, nil
}

// patternGroup builds the OR-group for the normalized patterns. Each pattern
// matches any searchable column; course-code patterns additionally try the
// concatenated course-code and course-number fields.
func patternGroup(patterns []search.Pattern, argOffset int) (string, []interface{}) {
	if len(patterns) == 0 {
		return "", nil
	}

	var clauses []string
	var args []interface{}
	next := func(value string) string {
		args = append(args, "%"+value+"%")
		return fmt.Sprintf("$%d", argOffset+len(args))
	}

	for _, p := range patterns {
		placeholder := next(p.Text)
		for _, col := range searchableColumns {
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE %s", col, placeholder))
		}
		if p.IsCourse() {
			concat := next(p.Code + p.Number)
			clauses = append(clauses, fmt.Sprintf("LOWER(course_code || course_number) LIKE %s", concat))
		}
	}

	return "(" + strings.Join(clauses, " OR ") + ")", args
}

// ListAll returns the full catalog ordered by date descending.
func (r *DocumentRepository) ListAll(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	query := "SELECT " + documentColumns + " FROM documents ORDER BY date DESC"
	if err := r.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// FindByID loads a document by identifier.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents WHERE id = $1"
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByPath loads a document by its unique storage path.
func (r *DocumentRepository) FindByPath(ctx context.Context, path string) (*models.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents WHERE file_path = $1"
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, path); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create inserts a new document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	const query = `INSERT INTO documents (id, title, course_code, course_number, course_name, professor, date, term, file_path, mime_type, size_bytes, uploaded_by, created_at, updated_at) VALUES (:id, :title, :course_code, :course_number, :course_name, :professor, :date, :term, :file_path, :mime_type, :size_bytes, :uploaded_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Update persists the mutable metadata fields of an existing record. The
// file path is never rewritten.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE documents SET title = :title, course_code = :course_code, course_number = :course_number, course_name = :course_name, professor = :professor, date = :date, term = :term, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// Delete removes a document row permanently.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
