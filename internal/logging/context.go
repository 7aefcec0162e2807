package logging

import (
	"context"
	"log/slog"

	"vidshelf/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for run identifiers.
	FieldRunID = "run_id"
	// FieldCategory is the standardized structured logging key for tag/model category names.
	FieldCategory = "category"
	// FieldPage is the standardized structured logging key for listing page numbers.
	FieldPage = "page"
	// FieldURL is the standardized structured logging key for remote URLs.
	FieldURL = "url"
	// FieldTitle is the standardized structured logging key for video titles.
	FieldTitle = "title"
	// FieldStrategy is the standardized structured logging key for link strategies.
	FieldStrategy = "strategy"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if category, ok := services.CategoryFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCategory, category))
	}
	if page, ok := services.PageFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldPage, page))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
