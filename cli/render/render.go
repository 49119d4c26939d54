// Package render provides centralized output rendering for the inquire CLI.
//
// Format selection rules:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format flag always overrides defaults
//   - Invalid formats are errors
//
// Color handling:
//   - --no-color affects table output only
//   - TUI mode is unaffected by --no-color (uses its own styling)
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/inquire/cli/tui"
	"github.com/pithecene-io/inquire/export"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// statusFields are table columns whose values are colored by state.
var statusFields = map[string]bool{
	"outcome": true,
	"status":  true,
	"final":   true,
}

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer handles output formatting.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer from CLI context.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}

	// Apply default format based on TTY detection
	if format == "" {
		if f, ok := out.(*os.File); ok && isTTY(f) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     out,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format:  format,
		noColor: noColor,
		out:     out,
	}
}

// Format returns the selected output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(data)
	case FormatTable:
		return r.renderTable(data)
	case FormatYAML:
		return r.renderYAML(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderTUI initiates TUI mode for the given view type.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// renderYAML goes through JSON first so yaml keys follow the json tags.
func (r *Renderer) renderYAML(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func (r *Renderer) renderTable(data any) error {
	if report, ok := data.(*export.RunReport); ok {
		return r.renderRunReport(report)
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice {
		return r.renderSliceTable(v)
	}
	return r.renderStructTable(data)
}

// renderRunReport prints the run summary followed by one row per query.
func (r *Renderer) renderRunReport(report *export.RunReport) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "run_id:\t%s\n", report.RunID)
	fmt.Fprintf(w, "lds:\t%s\n", report.LDS)
	fmt.Fprintf(w, "outcome:\t%s\n", r.colorize("outcome", string(report.Outcome)))
	fmt.Fprintf(w, "message:\t%s\n", report.Message)
	fmt.Fprintf(w, "queries:\t%d selected, %d succeeded, %d failed, %d skipped\n",
		report.Selected, report.Succeeded, report.Failed, report.Skipped)
	fmt.Fprintf(w, "rows:\t%d\n", report.Rows)
	fmt.Fprintf(w, "duration:\t%s\n", (time.Duration(report.DurationMs) * time.Millisecond).String())
	if err := w.Flush(); err != nil {
		return err
	}
	if len(report.Queries) == 0 {
		return nil
	}
	fmt.Fprintln(r.out)
	return r.renderSliceTable(reflect.ValueOf(report.Queries))
}

func (r *Renderer) renderSliceTable(v reflect.Value) error {
	if v.Len() == 0 {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	headers := r.getHeaders(v.Index(0))
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	for i := 0; i < v.Len(); i++ {
		row := r.getRowValues(v.Index(i), headers)
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	return w.Flush()
}

func (r *Renderer) renderStructTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name := r.getFieldName(field)
			val := r.colorize(name, r.formatValue(v.Field(i)))
			fmt.Fprintf(w, "%s:\t%s\n", name, val)
		}
	case reflect.Map:
		for _, key := range sortedKeys(v) {
			val := r.formatValue(v.MapIndex(key))
			fmt.Fprintf(w, "%v:\t%s\n", key.Interface(), val)
		}
	default:
		fmt.Fprintf(w, "%v\n", data)
	}

	return w.Flush()
}

func (r *Renderer) getHeaders(v reflect.Value) []string {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	var headers []string
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				headers = append(headers, r.getFieldName(t.Field(i)))
			}
		}
	case reflect.Map:
		for _, key := range sortedKeys(v) {
			headers = append(headers, fmt.Sprintf("%v", key.Interface()))
		}
	default:
		headers = []string{"value"}
	}
	return headers
}

func (r *Renderer) getRowValues(v reflect.Value, headers []string) []string {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	var values []string
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			name := r.getFieldName(t.Field(i))
			values = append(values, r.colorize(name, r.formatValue(v.Field(i))))
		}
	case reflect.Map:
		for _, h := range headers {
			val := v.MapIndex(reflect.ValueOf(h))
			if val.IsValid() {
				values = append(values, r.formatValue(val))
			} else {
				values = append(values, "")
			}
		}
	default:
		values = []string{r.formatValue(v)}
	}
	return values
}

func (r *Renderer) getFieldName(f reflect.StructField) string {
	// Prefer json tag name
	if tag := f.Tag.Get("json"); tag != "" {
		parts := strings.Split(tag, ",")
		if parts[0] != "" && parts[0] != "-" {
			return parts[0]
		}
	}
	return strings.ToLower(f.Name)
}

func (r *Renderer) formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}

	if t, ok := v.Interface().(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return "{...}"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// colorize styles status-like values in table output unless --no-color.
func (r *Renderer) colorize(field, value string) string {
	if r.noColor || !statusFields[field] || value == "" {
		return value
	}
	return tui.StateStyle(value).Render(value)
}

func sortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}

// isTTY returns true if the file is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
