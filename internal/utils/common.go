package utils

import (
	"mime/multipart"
	"path/filepath"
	"strings"
)

// Common utilities used across the object-storage API

// GetFileExtension extracts and normalizes the file extension
func GetFileExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return strings.TrimPrefix(ext, ".")
}

// GetFileExtensionFromHeader extracts extension from multipart file header
func GetFileExtensionFromHeader(file *multipart.FileHeader) string {
	return GetFileExtension(file.Filename)
}

// MatchesMimeType checks if a MIME type matches a pattern
func MatchesMimeType(actual, pattern string) bool {
	actual = strings.ToLower(actual)

	// Exact match
	if actual == pattern {
		return true
	}

	// Wildcard match (e.g., "video/*" matches "video/mp4")
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return strings.HasPrefix(actual, prefix+"/")
	}

	return false
}

// IsValidMimeType checks if a MIME type matches any of the expected patterns
func IsValidMimeType(actual string, expectedPatterns []string) bool {
	for _, pattern := range expectedPatterns {
		if MatchesMimeType(actual, pattern) {
			return true
		}
	}
	return false
}
