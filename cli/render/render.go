// Package render provides centralized output rendering for the logbook CLI.
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
//
// Table output covers the flat responses (version) and the session status;
// anything nested is better read as json or yaml.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/justapithecus/logbook/cli/tui"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

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
// Applies the format selection rules above.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	formatStr := c.String("format")
	format, err := ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	// Apply default format based on TTY detection
	if format == "" {
		if isTTY(os.Stdout) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     os.Stdout,
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
// TUI is opt-in only and read-only.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

// RenderStatus writes a status in the configured format. Table output uses
// the styled static view unless colors are disabled.
func (r *Renderer) RenderStatus(st tui.Status) error {
	if r.format != FormatTable {
		return r.Render(st)
	}
	if r.noColor {
		return r.renderStatusTable(st)
	}
	_, err := fmt.Fprintln(r.out, tui.RenderStatic(st))
	return err
}

// Format returns the selected output format.
func (r *Renderer) Format() Format { return r.format }

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderYAML(data any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	return enc.Encode(data)
}

// renderTable prints a flat struct or map as aligned key: value lines.
// Nested values are summarized; use json or yaml for the full structure.
func (r *Renderer) renderTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	v := reflect.Indirect(reflect.ValueOf(data))
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			if !t.Field(i).IsExported() {
				continue
			}
			fmt.Fprintf(w, "%s:\t%s\n", fieldName(t.Field(i)), summarize(v.Field(i)))
		}
	case reflect.Map:
		keys := make([]string, 0, v.Len())
		vals := make(map[string]reflect.Value, v.Len())
		for iter := v.MapRange(); iter.Next(); {
			k := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, k)
			vals[k] = iter.Value()
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s:\t%s\n", k, summarize(vals[k]))
		}
	default:
		fmt.Fprintf(w, "%v\n", data)
	}
	return nil
}

// renderStatusTable prints a status without styling: identity and counters,
// then one section per fleet, resource and recent event.
func (r *Renderer) renderStatusTable(st tui.Status) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "session_id:\t%s\n", st.SessionID)
	if st.Listen != "" {
		fmt.Fprintf(w, "listen:\t%s\n", st.Listen)
	}
	if len(st.APIHosts) > 0 {
		fmt.Fprintf(w, "api_hosts:\t%s\n", strings.Join(st.APIHosts, ", "))
	}
	if st.Uptime != "" {
		fmt.Fprintf(w, "uptime:\t%s\n", st.Uptime)
	}
	fmt.Fprintf(w, "world_version:\t%d\n", st.WorldVersion)
	if st.Admiral != "" {
		fmt.Fprintf(w, "admiral:\t%s (Lv.%d)\n", st.Admiral, st.Level)
	}
	c := st.Counters
	fmt.Fprintf(w, "exchanges:\tcaptured %d, aborted %d, dropped %d\n", c.Captured, c.Aborted, c.Dropped)
	fmt.Fprintf(w, "classified:\t%d (misses %d, decode errors %d)\n", c.Classified, c.Misses, c.DecodeErrors)
	fmt.Fprintf(w, "folds:\t%d (errors %d, inconsistencies %d)\n", c.Folds, c.FoldErrors, c.Inconsistencies)
	if c.UpstreamErrors > 0 || c.ExportFailures > 0 {
		fmt.Fprintf(w, "failures:\tupstream %d, export %d\n", c.UpstreamErrors, c.ExportFailures)
	}
	if st.Battle != "" {
		fmt.Fprintf(w, "battle:\t%s\n", st.Battle)
	}

	if len(st.Docks) > 0 {
		fmt.Fprintln(w, "\nFLEET\tNAME\tSHIPS\tSTATE")
		for _, d := range st.Docks {
			state := "port"
			switch {
			case d.Sortie:
				state = "sortie"
			case d.Mission != 0:
				state = fmt.Sprintf("expedition %d", d.Mission)
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", d.ID, d.Name, d.Ships, state)
		}
	}
	if len(st.Resources) > 0 {
		fmt.Fprintln(w, "\nRESOURCE\tVALUE\tOBSERVED")
		for _, res := range st.Resources {
			fmt.Fprintf(w, "%s\t%d\t%s\n", res.Resource, res.Value, res.Time.Local().Format(time.DateTime))
		}
	}
	if len(st.Recent) > 0 {
		fmt.Fprintln(w, "\nRECENT")
		for _, line := range st.Recent {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func fieldName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return strings.ToLower(f.Name)
}

func summarize(v reflect.Value) string {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			return t.Format(time.RFC3339)
		}
		return "{...}"
	default:
		return fmt.Sprint(v.Interface())
	}
}

// isTTY returns true if the writer is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
