package main

import (
	"errors"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/inquire/export"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

func TestExitMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "success no message",
			err:      cli.Exit("", export.ExitCodeSuccess),
			wantCode: 0,
			wantMsg:  "",
		},
		{
			name:     "partial with message",
			err:      cli.Exit("web: 1 queries exported, 1 failed", export.ExitCodePartial),
			wantCode: 1,
			wantMsg:  "web: 1 queries exported, 1 failed",
		},
		{
			name:     "failed without message",
			err:      cli.Exit("", export.ExitCodeFailed),
			wantCode: 2,
			wantMsg:  "",
		},
		{
			name:     "config error",
			err:      cli.Exit("missing required config: lds", export.ExitCodeConfig),
			wantCode: 3,
			wantMsg:  "missing required config: lds",
		},
		{
			name:     "wrapped exit coder",
			err:      errors.Join(errors.New("context"), cli.Exit("inner error", 42)),
			wantCode: 42,
			wantMsg:  "inner error",
		},
		{
			name:     "regular error",
			err:      errors.New("regular error"),
			wantCode: 1,
			wantMsg:  "Error: regular error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, code := exitMessage(tt.err)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}
