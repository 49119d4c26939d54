package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents one inquire YAML configuration file. Each file
// describes the export of one data source. CLI flags override file values.
type Config struct {
	Backend    string   `yaml:"backend"`
	LDS        string   `yaml:"lds"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	APIToken   string   `yaml:"api_token"`
	APIVersion int      `yaml:"api_version"`
	Timeout    Duration `yaml:"timeout"`
	PageSize   int      `yaml:"page_size"`
	From       string   `yaml:"from"`
	To         string   `yaml:"to"`
	Query      string   `yaml:"query"`
	// Exclude overrides the default exclusion pattern when set. An empty
	// string disables exclusion.
	Exclude    *string       `yaml:"exclude,omitempty"`
	Parallel   int           `yaml:"parallel"`
	Poll       PollConfig    `yaml:"poll"`
	Storage    StorageConfig `yaml:"storage"`
	Policy     PolicyConfig  `yaml:"policy"`
	Adapter    AdapterConfig `yaml:"adapter"`
	Transcript string        `yaml:"transcript"`
	Schedule   string        `yaml:"schedule"`
}

// PollConfig holds poll pacing from the config file.
type PollConfig struct {
	Initial           Duration `yaml:"initial"`
	Max               Duration `yaml:"max"`
	Multiplier        float64  `yaml:"multiplier"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
}

// StorageConfig holds storage defaults from the config file.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// PolicyConfig holds policy defaults from the config file.
type PolicyConfig struct {
	Name        string `yaml:"name"`
	BufferRows  int    `yaml:"buffer_rows"`
	BufferBytes int64  `yaml:"buffer_bytes"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	List    string            `yaml:"list,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MissingFieldsError lists every mandatory field a config lacks.
type MissingFieldsError struct {
	Source string
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	if e.Source == "" {
		return "missing required config: " + strings.Join(e.Fields, ", ")
	}
	return fmt.Sprintf("%s: missing required config: %s", e.Source, strings.Join(e.Fields, ", "))
}

// Validate reports all missing mandatory fields at once: backend, lds and
// either api_token or username and password. source names the config in
// the error.
func (c *Config) Validate(source string) error {
	var missing []string
	if c.Backend == "" {
		missing = append(missing, "backend")
	}
	if c.LDS == "" {
		missing = append(missing, "lds")
	}
	if c.APIToken == "" {
		if c.Username == "" {
			missing = append(missing, "username (or api_token)")
		}
		if c.Password == "" {
			missing = append(missing, "password (or api_token)")
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Source: source, Fields: missing}
	}
	return nil
}
