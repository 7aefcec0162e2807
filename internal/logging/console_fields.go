package logging

import (
	"log/slog"
	"strings"
)

type consoleField struct {
	label string
	value string
}

// consoleHighlightKeys are surfaced first, in this order, when present.
var consoleHighlightKeys = []string{
	FieldURL,
	FieldTitle,
	FieldStrategy,
	"status",
	"matched",
	"score",
	"reason",
	"pages",
	"entities",
	"links_created",
	"links_skipped",
	"links_fallback",
	"links_failed",
	"coverage_gaps",
	"error",
}

// selectConsoleFields orders and formats attributes for console output.
// Debug-only keys are dropped unless verbose is set.
func selectConsoleFields(attrs []kv, verbose bool) []consoleField {
	if len(attrs) == 0 {
		return nil
	}
	used := make([]bool, len(attrs))
	result := make([]consoleField, 0, len(attrs))

	appendField := func(idx int) {
		attr := attrs[idx]
		used[idx] = true
		if !verbose && isDebugOnlyKey(attr.key) {
			return
		}
		result = append(result, consoleField{
			label: displayLabel(attr.key),
			value: formatValueForKey(attr.key, attr.value),
		})
	}

	for _, key := range consoleHighlightKeys {
		for idx, attr := range attrs {
			if used[idx] || attr.key != key {
				continue
			}
			appendField(idx)
			break
		}
	}
	for idx := range attrs {
		if !used[idx] {
			appendField(idx)
		}
	}
	return result
}

// formatValueForKey applies smart formatting based on the key name.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()

	if strings.HasSuffix(key, "_bytes") && (v.Kind() == slog.KindInt64 || v.Kind() == slog.KindUint64) {
		var size int64
		if v.Kind() == slog.KindInt64 {
			size = v.Int64()
		} else {
			size = int64(v.Uint64())
		}
		return formatBytes(size)
	}
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	return formatValue(v)
}

func isDebugOnlyKey(key string) bool {
	if key == "" {
		return true
	}
	if strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "_dir") {
		return true
	}
	switch key {
	case "selector", "attempt", "backoff", "normalized_title", "token_count":
		return true
	}
	return false
}

func displayLabel(key string) string {
	switch key {
	case FieldURL:
		return "URL"
	case FieldTitle:
		return "Title"
	case FieldStrategy:
		return "Strategy"
	case "status":
		return "Status"
	case "score":
		return "Score"
	case "reason":
		return "Reason"
	case "pages":
		return "Pages"
	case "entities":
		return "Entities"
	case "coverage_gaps":
		return "Coverage Gaps"
	case "links_created":
		return "Created"
	case "links_skipped":
		return "Skipped"
	case "links_fallback":
		return "Fallback"
	case "links_failed":
		return "Failed"
	case "error":
		return "Error"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	if len(parts) == 0 {
		return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return itoa(size) + " B"
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := float64(size) / float64(div)
	units := []string{"KiB", "MiB", "GiB", "TiB"}
	return trimFloat(value) + " " + units[exp]
}
