package reader

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pithecene-io/inquire/inquire"
)

// CatalogEntries builds the catalog listing sorted by name, case-insensitively.
// Queries matching exclude are flagged, not dropped.
func CatalogEntries(queries []inquire.SharedQuery, exclude *regexp.Regexp) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(queries))
	for _, q := range queries {
		entries = append(entries, CatalogEntry{
			Name:        q.PublishedName,
			ID:          q.ID.String(),
			Description: q.Description,
			Excluded:    exclude != nil && exclude.MatchString(q.PublishedName),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries
}
