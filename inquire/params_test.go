package inquire

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Params
		wantErr error
	}{
		{"empty", Params{}, nil},
		{"both dates", Params{From: "2022-01-01", To: "2022-01-31"}, nil},
		{"from only", Params{From: "2022-01-01"}, ErrParameter},
		{"to only", Params{To: "2022-01-31"}, ErrParameter},
		{"negative page size", Params{PageSize: -1}, ErrParameter},
		{"negative timeout", Params{Timeout: -time.Second}, ErrParameter},
		{"page size and timeout", Params{PageSize: 10, Timeout: time.Minute}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2022-01-01", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"2022-01-01T13:45:10Z", time.Date(2022, 1, 1, 13, 45, 10, 0, time.UTC), false},
		{"2022-1-1", time.Time{}, true},
		{"01/02/2022", time.Time{}, true},
		{"2022-02-30", time.Time{}, true},
		{"2022-01-01T13:45:10", time.Time{}, true},
		{"2022-01-01 13:45:10Z", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrDateParse) {
				t.Errorf("ParseDate(%q): expected ErrDateParse, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) || got.Location() != time.UTC {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEpochMillis_RoundTrip(t *testing.T) {
	for _, in := range []string{"2021-03-01", "2021-03-02"} {
		ms, err := EpochMillis(in)
		if err != nil {
			t.Fatalf("EpochMillis(%q): %v", in, err)
		}
		n, err := strconv.ParseInt(ms, 10, 64)
		if err != nil {
			t.Fatalf("not a decimal: %q", ms)
		}
		back := time.UnixMilli(n).UTC().Format("2006-01-02")
		if back != in {
			t.Errorf("round trip %q -> %s -> %q", in, ms, back)
		}
	}
}

func TestEpochMillis_KnownValues(t *testing.T) {
	tests := map[string]string{
		"1970-01-01":           "0",
		"2021-03-01":           "1614556800000",
		"2022-01-31T23:59:59Z": "1643673599000",
	}
	for in, want := range tests {
		got, err := EpochMillis(in)
		if err != nil {
			t.Fatalf("EpochMillis(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("EpochMillis(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParams_TimeoutSeconds(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		want    int
	}{
		{0, 30},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Millisecond, 1},
		{2 * time.Minute, 120},
	}
	for _, tt := range tests {
		if got := (Params{Timeout: tt.timeout}).TimeoutSeconds(); got != tt.want {
			t.Errorf("TimeoutSeconds(%s) = %d, want %d", tt.timeout, got, tt.want)
		}
	}
}

func TestParams_SubmitParamsOrder(t *testing.T) {
	p := Params{From: "2022-01-01", To: "2022-01-31", PageSize: 1000, Timeout: 10 * time.Second}
	got, err := p.submitParams("DailyVisits", "esPageSize")
	if err != nil {
		t.Fatalf("submitParams: %v", err)
	}
	wantKeys := []string{"identifier", "from", "to", "esPageSize", "timeout"}
	if len(got) != len(wantKeys) {
		t.Fatalf("expected %d params, got %d: %v", len(wantKeys), len(got), got)
	}
	for i, k := range wantKeys {
		if got[i].key != k {
			t.Errorf("param %d: expected %s, got %s", i, k, got[i].key)
		}
	}
	if v, _ := got.get("timeout"); v != "10" {
		t.Errorf("expected timeout 10, got %s", v)
	}
}

func TestParams_SubmitParamsOmitsOptional(t *testing.T) {
	got, err := Params{}.submitParams("Q", "pageSize")
	if err != nil {
		t.Fatalf("submitParams: %v", err)
	}
	if enc := got.encode(); enc != "identifier=Q&timeout=30" {
		t.Errorf("unexpected encoding %q", enc)
	}
}

func TestParams_SubmitParamsMixedLayouts(t *testing.T) {
	got, err := Params{From: "2022-01-01", To: "2022-01-01T12:00:00Z"}.submitParams("Q", "pageSize")
	if err != nil {
		t.Fatalf("submitParams: %v", err)
	}
	from, _ := got.get("from")
	to, _ := got.get("to")
	if from != "1640995200000" || to != "1641038400000" {
		t.Errorf("unexpected range %s..%s", from, to)
	}
}

func TestParamList_EncodeEscapes(t *testing.T) {
	l := paramList{{"identifier", "Daily Visits & more"}, {"timeout", "5"}}
	if got := l.encode(); got != "identifier=Daily+Visits+%26+more&timeout=5" {
		t.Errorf("unexpected encoding %q", got)
	}
}
