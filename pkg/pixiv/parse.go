package pixiv

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIllustID accepts a numeric work id or an artwork URL such as
// https://www.pixiv.net/en/artworks/12345#manga
func ParseIllustID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseUint(s, 10, 64); err == nil {
		return id, nil
	}

	const marker = "artworks/"
	i := strings.Index(s, marker)
	if i < 0 {
		return 0, fmt.Errorf("%q is neither a work id nor an artwork URL", s)
	}
	rest := s[i+len(marker):]
	if j := strings.IndexAny(rest, "#?/"); j >= 0 {
		rest = rest[:j]
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid work id in %q: %w", s, err)
	}
	return id, nil
}

// NormalizeCookie strips whitespace and a copied "Cookie: " header prefix
func NormalizeCookie(cookie string) string {
	cookie = strings.TrimSpace(cookie)
	if len(cookie) >= len("Cookie:") && strings.EqualFold(cookie[:len("Cookie:")], "Cookie:") {
		cookie = strings.TrimSpace(cookie[len("Cookie:"):])
	}
	return cookie
}
