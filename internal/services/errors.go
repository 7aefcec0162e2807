package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks retryable network failures.
	ErrTransient = errors.New("transient failure")
	// ErrCoverageGap marks a listing page that could not be fetched after
	// retries. The run continues; the gap is recorded.
	ErrCoverageGap = errors.New("coverage gap")
	// ErrFilesystem marks link-creation failures. Only fatal for a given
	// pair when every strategy in the chain has failed.
	ErrFilesystem = errors.New("filesystem error")
	// ErrCatalogFormat marks a malformed catalog list line. The line is
	// skipped with a warning.
	ErrCatalogFormat = errors.New("catalog format error")
	// ErrValidation marks invalid input that prevents an operation.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or inconsistent configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks an absent external resource (sitemap, page).
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error should abort the whole run instead of
// being recorded in the per-run report. Per-entity and per-page failures
// (transient, coverage gap, filesystem, format) never abort.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrTransient),
		errors.Is(err, ErrCoverageGap),
		errors.Is(err, ErrFilesystem),
		errors.Is(err, ErrCatalogFormat),
		errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return true
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
