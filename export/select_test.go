package export

import (
	"errors"
	"regexp"
	"testing"

	"github.com/pithecene-io/inquire/inquire"
)

func catalog(names ...string) []inquire.SharedQuery {
	qs := make([]inquire.SharedQuery, 0, len(names))
	for _, n := range names {
		qs = append(qs, inquire.SharedQuery{PublishedName: n})
	}
	return qs
}

func names(qs []inquire.SharedQuery) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.PublishedName)
	}
	return out
}

func TestDefaultExclude(t *testing.T) {
	tests := map[string]bool{
		"usage_transactions":    true,
		"Usage_Sessions":        true,
		"usage_-_interactions":  true,
		"usage_–standard_usage": true,
		"usage___sessions":      true,
		"usage_sessions_daily":  false,
		"daily_usage_sessions":  false,
		"DailyVisits":           false,
	}
	for name, want := range tests {
		if got := DefaultExclude.MatchString(name); got != want {
			t.Errorf("DefaultExclude(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSelect(t *testing.T) {
	cat := catalog("DailyVisits", "Sessions", "usage_transactions")
	tests := []struct {
		name        string
		query       string
		exclude     *regexp.Regexp
		wantSel     []string
		wantSkipped []string
		wantErr     error
	}{
		{"all", "all", DefaultExclude, []string{"DailyVisits", "Sessions"}, []string{"usage_transactions"}, nil},
		{"empty means all", "", DefaultExclude, []string{"DailyVisits", "Sessions"}, []string{"usage_transactions"}, nil},
		{"ALL any case", "ALL", DefaultExclude, []string{"DailyVisits", "Sessions"}, []string{"usage_transactions"}, nil},
		{"no exclusion", "all", nil, []string{"DailyVisits", "Sessions", "usage_transactions"}, nil, nil},
		{"named case-insensitive", "sessions", DefaultExclude, []string{"Sessions"}, nil, nil},
		{"named but excluded", "usage_transactions", DefaultExclude, nil, []string{"usage_transactions"}, nil},
		{"missing", "Nope", DefaultExclude, nil, nil, ErrQueryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, skipped, err := Select(cat, tt.query, tt.exclude)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got := names(sel); !equal(got, tt.wantSel) {
				t.Errorf("selected = %v, want %v", got, tt.wantSel)
			}
			if got := names(skipped); !equal(got, tt.wantSkipped) {
				t.Errorf("skipped = %v, want %v", got, tt.wantSkipped)
			}
		})
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
