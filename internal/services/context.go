package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	categoryKey contextKey = "category"
	pageKey     contextKey = "page"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCategory annotates context with the category (tag or model) being processed.
func WithCategory(ctx context.Context, category string) context.Context {
	if category == "" {
		return ctx
	}
	return context.WithValue(ctx, categoryKey, category)
}

// CategoryFromContext returns the category name if present.
func CategoryFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(categoryKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPage annotates context with the listing page number being crawled.
func WithPage(ctx context.Context, page int) context.Context {
	if page <= 0 {
		return ctx
	}
	return context.WithValue(ctx, pageKey, page)
}

// PageFromContext extracts the listing page number if present.
func PageFromContext(ctx context.Context) (int, bool) {
	switch v := ctx.Value(pageKey).(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
