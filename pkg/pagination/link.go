package pagination

import (
	"strings"
)

// nextMarker is the relation marker Canvas uses for a following page.
const nextMarker = `rel="next"`

// HasNext reports whether a Link header advertises a next page.
func HasNext(link string) bool {
	return strings.Contains(link, nextMarker)
}

// ParseLinks maps each relation in a Link header to its URL.
//
// Example:
//
//	ParseLinks(`<https://x/api/v1/courses?page=2>; rel="next", <https://x/api/v1/courses?page=3>; rel="last"`)
//	// map[last:https://x/api/v1/courses?page=3 next:https://x/api/v1/courses?page=2]
func ParseLinks(link string) map[string]string {
	links := make(map[string]string)

	for _, part := range splitLinks(link) {
		open := strings.Index(part, "<")
		closing := strings.Index(part, ">")
		if open < 0 || closing < open {
			continue
		}
		target := part[open+1 : closing]

		for _, param := range strings.Split(part[closing+1:], ";") {
			key, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found || strings.TrimSpace(key) != "rel" {
				continue
			}
			for _, rel := range strings.Fields(strings.Trim(value, `"`)) {
				links[rel] = target
			}
		}
	}

	return links
}

// splitLinks splits on commas that are not inside <...>.
func splitLinks(link string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range link {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, link[start:i])
				start = i + 1
			}
		}
	}
	if start < len(link) {
		parts = append(parts, link[start:])
	}
	return parts
}
