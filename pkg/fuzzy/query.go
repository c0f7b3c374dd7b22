package fuzzy

import (
	"fmt"
	"strings"

	"trackhound/internal/core"
)

// EnhanceSearchQuery returns query followed by quoted title/artist variants
// that favour original recordings. Without a title and artist only query is
// returned.
func EnhanceSearchQuery(query string, meta *core.TrackMetadata) []string {
	queries := []string{query}
	if meta == nil || meta.Name == "" || meta.Artist == "" {
		return queries
	}

	for _, suffix := range []string{"official", "original", "studio version"} {
		queries = append(queries, fmt.Sprintf(`"%s" "%s" %s`, meta.Name, meta.Artist, suffix))
	}
	return queries
}

// SearchVariants derives looser spellings of query for sources with strict
// search engines: separators turned into spaces and a three-word prefix.
func SearchVariants(query string) core.SearchQuery {
	canonical := strings.TrimSpace(query)

	words := strings.FieldsFunc(canonical, func(r rune) bool {
		return r == '_' || r == ' ' || r == '\t'
	})
	if len(words) > 3 {
		words = words[:3]
	}

	return core.SearchQuery{
		Canonical: canonical,
		Alternates: []string{
			collapseSpaces(strings.ReplaceAll(canonical, "_", " ")),
			collapseSpaces(strings.ReplaceAll(canonical, ",", " ")),
			collapseSpaces(strings.ReplaceAll(canonical, ".", " ")),
			strings.Join(words, " "),
		},
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
