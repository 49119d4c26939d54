package inquire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Row is one result row: an ordered mapping from column name to a scalar
// value. Numbers decode as json.Number so no precision is lost; dates
// arrive as strings. Column sets may differ between rows of one result.
type Row struct {
	// Columns lists column names in server emission order.
	Columns []string
	// Values maps column name to value.
	Values map[string]any
}

// Get returns the value of column col.
func (r Row) Get(col string) (any, bool) {
	v, ok := r.Values[col]
	return v, ok
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.Columns)
}

// MarshalJSON encodes the row as an object preserving column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.Values[col])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, recording key order. Duplicate keys
// keep their first position and last value.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row: expected object, got %v", tok)
	}

	r.Columns = r.Columns[:0]
	r.Values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("row: expected key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("row: column %q: %w", key, err)
		}
		if _, seen := r.Values[key]; !seen {
			r.Columns = append(r.Columns, key)
		}
		r.Values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Rows is a lazy, finite, single-pass sequence of result rows. Rows are
// decoded one at a time in server emission order.
//
//	rows := poller.Results()
//	for rows.Next() {
//		row := rows.Row()
//		...
//	}
//	if err := rows.Err(); err != nil { ... }
type Rows struct {
	raw []json.RawMessage
	pos int
	cur Row
	err error
}

func newRows(raw []json.RawMessage) *Rows {
	return &Rows{raw: raw}
}

// Len returns the total number of rows in the sequence, consumed or not.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.raw)
}

// Next advances to the next row. It returns false when the sequence is
// exhausted or a row fails to decode.
func (r *Rows) Next() bool {
	if r == nil || r.err != nil || r.pos >= len(r.raw) {
		return false
	}
	raw := r.raw[r.pos]
	r.pos++
	var row Row
	if err := row.UnmarshalJSON(raw); err != nil {
		r.err = &Error{Kind: ErrProtocol, Op: "decode row", Err: fmt.Errorf("row %d: %w", r.pos-1, err)}
		return false
	}
	r.cur = row
	return true
}

// Row returns the current row. Valid only after Next returned true.
func (r *Rows) Row() Row {
	return r.cur
}

// Err returns the first decode error encountered, if any.
func (r *Rows) Err() error {
	if r == nil {
		return nil
	}
	return r.err
}

// Collect drains the remaining rows into a slice.
func (r *Rows) Collect() ([]Row, error) {
	var out []Row
	for r.Next() {
		out = append(out, r.Row())
	}
	return out, r.Err()
}

// errNotArray is returned when a message result is not a JSON array.
var errNotArray = errors.New("result is not an array")

// splitResult splits a raw "result" array into its elements without
// decoding them. Absent or null results yield no rows.
func splitResult(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return nil, errNotArray
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, err
	}
	return elems, nil
}
