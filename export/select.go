package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pithecene-io/inquire/inquire"
)

// AllQueries selects every published query of the data source.
const AllQueries = "all"

// DefaultExcludePattern matches the billing usage queries, which are never
// exported unless the exclusion is overridden.
const DefaultExcludePattern = `(?i)^usage_([–-])?_*(transactions|interactions|sessions|standard_usage)$`

// DefaultExclude is DefaultExcludePattern compiled.
var DefaultExclude = regexp.MustCompile(DefaultExcludePattern)

// ErrQueryNotFound is returned when a named query is not in the catalog.
var ErrQueryNotFound = errors.New("query not found in catalog")

// Select picks the queries to run from the catalog. name is "all" (or
// empty) or a published name matched case-insensitively. Queries matching
// exclude are returned as skipped, whether or not they were named.
func Select(catalog []inquire.SharedQuery, name string, exclude *regexp.Regexp) (selected, skipped []inquire.SharedQuery, err error) {
	name = strings.TrimSpace(name)
	var candidates []inquire.SharedQuery
	if name == "" || strings.EqualFold(name, AllQueries) {
		candidates = catalog
	} else {
		q, ok := inquire.FindSharedQuery(catalog, name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrQueryNotFound, name)
		}
		candidates = []inquire.SharedQuery{q}
	}

	for _, q := range candidates {
		if exclude != nil && exclude.MatchString(q.PublishedName) {
			skipped = append(skipped, q)
			continue
		}
		selected = append(selected, q)
	}
	return selected, skipped, nil
}
