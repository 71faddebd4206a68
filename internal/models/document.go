package models

import "time"

// Document models one catalogued course-material file. The storage path is
// the authoritative link to the stored binary and is unique across the
// catalog. Dates are stored as ISO `YYYY-MM-DD` strings; ordering and
// comparisons on the date field are lexicographic. The term label is derived
// from the date once, at the storage boundary.
type Document struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	CourseCode   string    `db:"course_code" json:"course_code"`
	CourseNumber string    `db:"course_number" json:"course_number"`
	CourseName   string    `db:"course_name" json:"course_name"`
	Professor    string    `db:"professor" json:"professor"`
	Date         string    `db:"date" json:"date"`
	Term         string    `db:"term" json:"term"`
	FilePath     string    `db:"file_path" json:"file_path"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	UploadedBy   string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentFilter carries the exact-match filters and the free-text query
// accepted by the search endpoint. Exact filters are ANDed; the query
// contributes an OR-group of normalized patterns.
type DocumentFilter struct {
	CourseCode   string
	CourseNumber string
	Professor    string
	Query        string
}
