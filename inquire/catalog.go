package inquire

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// SharedQuery is one published query of a data source.
type SharedQuery struct {
	ID            uuid.UUID `json:"id"`
	PublishedName string    `json:"publishedName"`
	Description   string    `json:"description"`
	Query         string    `json:"query"`
	LDSID         uuid.UUID `json:"ldsId"`
}

// FindSharedQuery returns the entry whose published name equals name,
// ignoring case.
func FindSharedQuery(queries []SharedQuery, name string) (SharedQuery, bool) {
	for _, q := range queries {
		if strings.EqualFold(q.PublishedName, name) {
			return q, true
		}
	}
	return SharedQuery{}, false
}

// listSharedQueries fetches the catalog of lds from path. Nothing is cached.
func (s *Session) listSharedQueries(ctx context.Context, path, lds string) ([]SharedQuery, error) {
	op := "catalog"
	if lds == "" {
		return nil, &Error{Kind: ErrCatalog, Op: op, Message: "data source name is required"}
	}
	resp, err := s.send(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return nil, &Error{Kind: ErrCatalog, Op: op, DataSource: lds, Err: err}
	}
	switch {
	case resp.status == http.StatusNoContent || resp.status == http.StatusForbidden:
		return nil, &Error{Kind: ErrCatalog, Op: op, DataSource: lds, Err: ErrAuthorization}
	case resp.status == http.StatusUnauthorized:
		return nil, &Error{Kind: ErrCatalog, Op: op, DataSource: lds, Err: ErrAuthentication}
	case resp.status < 200 || resp.status > 299:
		return nil, &Error{Kind: ErrCatalog, Op: op, DataSource: lds, Err: &StatusError{Code: resp.status, Body: snippet(resp.body)}}
	}

	var queries []SharedQuery
	if err := json.Unmarshal(resp.body, &queries); err != nil {
		return nil, &Error{Kind: ErrCatalog, Op: op, DataSource: lds, Err: err}
	}
	return queries, nil
}

// ldsPath builds a per-data-source path with lds as one escaped segment.
func ldsPath(prefix, lds, suffix string) string {
	return prefix + "/" + escapeSegment(lds) + suffix
}

// escapeSegment escapes s so it stays a single path segment, dot
// segments included.
func escapeSegment(s string) string {
	switch s {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return url.PathEscape(s)
}
