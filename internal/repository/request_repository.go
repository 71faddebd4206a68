package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyvault/studyvault-api/internal/models"
)

// RequestRepository handles persistence for material requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository instantiates a request repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request with a server-assigned creation timestamp.
func (r *RequestRepository) Create(ctx context.Context, req *models.MaterialRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO material_requests (id, course, email, details, created_at) VALUES (:id, :course, :email, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create material request: %w", err)
	}
	return nil
}

// ExistsRecent reports whether the same (course, email) pair was submitted
// at or after the given time. This is a best-effort check; it is not
// serialized against a concurrent insert.
func (r *RequestRepository) ExistsRecent(ctx context.Context, course, email string, since time.Time) (bool, error) {
	const query = `SELECT 1 FROM material_requests WHERE course = $1 AND email = $2 AND created_at >= $3 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, course, email, since); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check recent request: %w", err)
	}
	return true, nil
}

// List returns all requests, newest first.
func (r *RequestRepository) List(ctx context.Context) ([]models.MaterialRequest, error) {
	var requests []models.MaterialRequest
	const query = `SELECT id, course, email, details, created_at FROM material_requests ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list material requests: %w", err)
	}
	return requests, nil
}

// Delete removes a request permanently.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM material_requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete material request: %w", err)
	}
	return nil
}
