package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	sanitized := fileNameReplacer.Replace(name)
	return strings.TrimSpace(strings.Join(strings.Fields(sanitized), " "))
}

// SanitizeCategoryName cleans a tag or model display name for use as a
// directory name segment. Empty or fully-stripped input becomes "unknown".
func SanitizeCategoryName(name string) string {
	out := SanitizeFileName(name)
	if out == "" {
		return "unknown"
	}
	return out
}
