package validation

import (
	"strings"

	apperrors "medclaim-portal/internal/common/errors"
)

// UploadPolicy bounds files accepted over the public token channel.
type UploadPolicy struct {
	MaxSizeBytes int64
	AllowedTypes []string
}

// CheckFile enforces size and MIME allow-list before any row is written.
func (p UploadPolicy) CheckFile(size int64, contentType string) error {
	if size <= 0 {
		return apperrors.NewValidationError("empty file")
	}
	if size > p.MaxSizeBytes {
		return apperrors.NewUploadTooLargeError(size, p.MaxSizeBytes)
	}

	ct := NormalizeContentType(contentType)
	for _, allowed := range p.AllowedTypes {
		if ct == allowed {
			return nil
		}
	}
	return apperrors.NewUploadTypeBlockedError(ct)
}

// NormalizeContentType strips parameters like "; charset=binary".
func NormalizeContentType(ct string) string {
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}
