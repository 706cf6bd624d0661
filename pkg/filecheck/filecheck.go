// Package filecheck validates files before they are uploaded for analysis.
package filecheck

import (
	"errors"
	"strings"
)

// MaxFileSize is the largest file accepted for upload (5 MiB).
const MaxFileSize int64 = 5 * 1024 * 1024

// SupportedExtensions lists the file extensions accepted for analysis.
var SupportedExtensions = []string{
	".js", ".ts", ".jsx", ".tsx", ".py", ".go", ".java", ".php",
	".rb", ".cs", ".cpp", ".c", ".rs", ".kt", ".json", ".yml",
	".yaml", ".env", ".html", ".css", ".scss",
}

var (
	ErrTooLarge    = errors.New("File too large (max 5MB)")
	ErrUnsupported = errors.New("Unsupported file type")
	ErrEmpty       = errors.New("File is empty")
)

// IsSupportedFileType reports whether name ends in a supported extension,
// ignoring case.
func IsSupportedFileType(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range SupportedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Validate checks size and type of a file. Checks run in a fixed order:
// size limit, extension, then emptiness.
func Validate(name string, size int64) error {
	if size > MaxFileSize {
		return ErrTooLarge
	}
	if !IsSupportedFileType(name) {
		return ErrUnsupported
	}
	if size == 0 {
		return ErrEmpty
	}
	return nil
}
