package lode

import (
	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/inquire/inquire"
	"github.com/pithecene-io/inquire/policy"
)

// sharedFactory returns a StoreFactory that always returns the given store,
// so write and read datasets share the same in-memory state.
func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

func testConfig() Config {
	return Config{
		Dataset: "inquire",
		LDS:     "web-prod",
		Day:     "2026-03-01",
		RunID:   "run-001",
		Policy:  policy.NameStrict,
	}
}

func testBatch(query, id string, offset int64, ns ...int) policy.Batch {
	rows := make([]inquire.Row, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, inquire.Row{
			Columns: []string{"day", "visits"},
			Values:  map[string]any{"day": "2026-03-01", "visits": n},
		})
	}
	return policy.Batch{
		Ref:    policy.QueryRef{Query: query, ExecutionID: id},
		Offset: offset,
		Rows:   rows,
	}
}

// toInt64 converts a value to int64 for assertions on raw map fields.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}
