package policy_test

import (
	"strconv"

	"github.com/pithecene-io/inquire/inquire"
)

func row(i int) inquire.Row {
	return inquire.Row{
		Columns: []string{"n", "label"},
		Values:  map[string]any{"n": i, "label": "row-" + strconv.Itoa(i)},
	}
}
