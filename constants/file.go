package constants

import "strings"

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// FileTypes holds the source types a document can be extracted from.
var FileTypes = []string{PDF, IMAGE}

// AllowedExtensions holds the extensions accepted for document ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"tiff": {},
	"tif":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

const (
	// MaxUploadBytes is the per-file ceiling enforced at upload intake.
	MaxUploadBytes int64 = 10 << 20
	// MaxBatchFiles caps a single multi-file submission.
	MaxBatchFiles = 10
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// IsAllowedExt reports whether ext (with or without dot, any case) is supported.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToFormat returns PDF or IMAGE for a supported extension, "" otherwise.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "tiff", "tif", "png", "jpg", "jpeg":
		return IMAGE
	default:
		return ""
	}
}
