package models

import "time"

// MaterialRequest records a student's ask for materials not yet in the
// catalog. Email is optional; when present it is stored lowercase and the
// same (course, email) pair cannot be resubmitted within the duplicate
// window.
type MaterialRequest struct {
	ID        string    `db:"id" json:"id"`
	Course    string    `db:"course" json:"course"`
	Email     string    `db:"email" json:"email,omitempty"`
	Details   string    `db:"details" json:"details,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
