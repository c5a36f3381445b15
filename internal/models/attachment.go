// internal/models/attachment.go
package models

import "time"

// Attachment is file metadata linked to a query and optionally one message.
// Rows are created on upload and never mutated; deletion is an explicit
// admin action and is not exposed on the public flow.
type Attachment struct {
	ID           string    `json:"id" db:"id"`
	QueryID      string    `json:"queryId" db:"query_id"`
	MessageID    string    `json:"messageId,omitempty" db:"message_id"`
	FileName     string    `json:"fileName" db:"file_name"`
	StoragePath  string    `json:"storagePath" db:"storage_path"`
	SizeBytes    int64     `json:"sizeBytes" db:"size_bytes"`
	MimeType     string    `json:"mimeType" db:"mime_type"`
	UploaderType string    `json:"uploaderType" db:"uploader_type"` // "admin" or "user"
	UploaderName string    `json:"uploaderName,omitempty" db:"uploader_name"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
