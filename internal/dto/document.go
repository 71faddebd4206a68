package dto

// UploadDocumentRequest carries the metadata fields of a multipart upload.
// Title is the only optional field.
type UploadDocumentRequest struct {
	Title        string `form:"title" json:"title"`
	CourseCode   string `form:"course_code" json:"course_code" validate:"required"`
	CourseNumber string `form:"course_number" json:"course_number" validate:"required"`
	CourseName   string `form:"course_name" json:"course_name"`
	Professor    string `form:"professor" json:"professor" validate:"required"`
	Date         string `form:"date" json:"date" validate:"required"`
}

// UpdateDocumentRequest updates any subset of the mutable metadata fields.
// The storage path and the underlying file are immutable.
type UpdateDocumentRequest struct {
	Title        *string `json:"title"`
	CourseCode   *string `json:"course_code"`
	CourseNumber *string `json:"course_number"`
	CourseName   *string `json:"course_name"`
	Professor    *string `json:"professor"`
	Date         *string `json:"date"`
}

// DownloadLink is the signed-URL issuance response.
type DownloadLink struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}
