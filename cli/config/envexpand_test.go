package config

import (
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("INQUIRE_TEST_LDS", "web")
	t.Setenv("INQUIRE_TEST_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set var", "lds: ${INQUIRE_TEST_LDS}", "lds: web"},
		{"unset var", "password: ${INQUIRE_TEST_UNSET}", "password: "},
		{"default when unset", "api_version: ${INQUIRE_TEST_UNSET:-2}", "api_version: 2"},
		{"default ignored when set", "lds: ${INQUIRE_TEST_LDS:-app}", "lds: web"},
		{"default when empty", "lds: ${INQUIRE_TEST_EMPTY:-app}", "lds: app"},
		{"several vars", "${INQUIRE_TEST_LDS}/${INQUIRE_TEST_LDS}", "web/web"},
		{"no vars", "query: all", "query: all"},
		{"bare dollar untouched", "exclude: ^tmp$", "exclude: ^tmp$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnv_NestedInYAML(t *testing.T) {
	t.Setenv("INQUIRE_USER", "admin")
	t.Setenv("INQUIRE_PASS", "secret")

	input := `username: ${INQUIRE_USER}
password: ${INQUIRE_PASS}
adapter:
  headers:
    Authorization: Bearer ${HOOK_TOKEN:-none}`

	want := `username: admin
password: secret
adapter:
  headers:
    Authorization: Bearer none`

	if got := ExpandEnv(input); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
