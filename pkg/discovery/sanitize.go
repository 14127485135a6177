package discovery

import (
	"strings"
	"unicode"
)

// SanitizeName turns a collection title into a single safe path component.
// It returns "" when nothing usable is left.
func SanitizeName(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		case unicode.IsControl(r):
			continue
		default:
			b.WriteRune(r)
		}
	}

	name := strings.Trim(b.String(), " .")
	if name == "" || strings.Trim(name, "_") == "" {
		return ""
	}
	return name
}
