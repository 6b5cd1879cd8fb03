package errors

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxTitleLength = 200
	maxTagLength   = 40
	maxTags        = 20
	maxPathLength  = 500
)

// ValidateTitle validates a task title.
//
// Titles must be non-blank after trimming, at most 200 characters and free
// of control characters other than tab.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return New(ErrCodeInvalidInput, "title cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > maxTitleLength {
		return New(ErrCodeInvalidInput, "title too long (max %d characters)", maxTitleLength)
	}
	for _, r := range trimmed {
		if r != '\t' && unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "title contains invalid control characters")
		}
	}
	return nil
}

// ValidateTags validates a tag list: at most 20 tags, each non-empty,
// at most 40 characters and without whitespace.
func ValidateTags(tags []string) error {
	if len(tags) > maxTags {
		return New(ErrCodeInvalidInput, "too many tags (max %d)", maxTags)
	}
	for _, tag := range tags {
		if tag == "" {
			return New(ErrCodeInvalidInput, "tag cannot be empty")
		}
		if utf8.RuneCountInString(tag) > maxTagLength {
			return New(ErrCodeInvalidInput, "tag %q too long (max %d characters)", tag, maxTagLength)
		}
		if strings.IndexFunc(tag, unicode.IsSpace) >= 0 {
			return New(ErrCodeInvalidInput, "tag %q contains whitespace", tag)
		}
	}
	return nil
}

// ValidatePath validates a local file path given on the command line or
// in the configuration file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}
