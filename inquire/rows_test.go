package inquire

import (
	"encoding/json"
	"errors"
	"testing"
)

func rawRows(t *testing.T, data string) []json.RawMessage {
	t.Helper()
	raw, err := splitResult(json.RawMessage(data))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	return raw
}

func TestRows_PreservesOrder(t *testing.T) {
	rows := newRows(rawRows(t, `[{"z":1,"a":"x","m":null},{"b":true},{"z":2,"a":"y","m":null}]`))
	if rows.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", rows.Len())
	}

	got, err := rows.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if cols := got[0].Columns; len(cols) != 3 || cols[0] != "z" || cols[1] != "a" || cols[2] != "m" {
		t.Errorf("unexpected column order: %v", cols)
	}
	if len(got[1].Columns) != 1 || got[1].Values["b"] != true {
		t.Errorf("expected heterogeneous second row, got %+v", got[1])
	}
	if v, ok := got[0].Get("m"); !ok || v != nil {
		t.Errorf("expected explicit null, got %v, %v", v, ok)
	}
	if n, ok := got[2].Values["z"].(json.Number); !ok || n.String() != "2" {
		t.Errorf("expected json.Number 2, got %#v", got[2].Values["z"])
	}
}

func TestRows_SinglePass(t *testing.T) {
	rows := newRows(rawRows(t, `[{"a":1},{"a":2}]`))
	first, _ := rows.Collect()
	second, _ := rows.Collect()
	if len(first) != 2 || len(second) != 0 {
		t.Errorf("expected single pass, got %d then %d", len(first), len(second))
	}
}

func TestRows_DecodeError(t *testing.T) {
	rows := newRows(rawRows(t, `[{"a":1},[1,2],{"a":3}]`))
	got, err := rows.Collect()
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected rows before the bad one, got %d", len(got))
	}
	if rows.Next() {
		t.Error("expected sequence to stop after an error")
	}
}

func TestRows_Nil(t *testing.T) {
	var rows *Rows
	if rows.Next() || rows.Len() != 0 || rows.Err() != nil {
		t.Error("nil rows must be an empty sequence")
	}
}

func TestRow_MarshalJSONKeepsOrder(t *testing.T) {
	var r Row
	if err := json.Unmarshal([]byte(`{"date":"2022-01-05","count":42,"nested":{"k":[1,"2"]}}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"date":"2022-01-05","count":42,"nested":{"k":[1,"2"]}}`
	if string(out) != want {
		t.Errorf("got %s, want %s", out, want)
	}
}

func TestRow_DuplicateKeys(t *testing.T) {
	var r Row
	if err := json.Unmarshal([]byte(`{"a":1,"b":2,"a":3}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(r.Columns) != 2 || r.Columns[0] != "a" {
		t.Errorf("unexpected columns %v", r.Columns)
	}
	if r.Values["a"].(json.Number).String() != "3" {
		t.Errorf("expected last value to win, got %v", r.Values["a"])
	}
}

func TestSplitResult(t *testing.T) {
	for _, in := range []string{``, `null`, ` null `, `[]`} {
		raw, err := splitResult(json.RawMessage(in))
		if err != nil || len(raw) != 0 {
			t.Errorf("splitResult(%q) = %d rows, %v", in, len(raw), err)
		}
	}
	if _, err := splitResult(json.RawMessage(`"rows"`)); err == nil {
		t.Error("expected error for non-array result")
	}
}
