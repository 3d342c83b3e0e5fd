// Package render provides output rendering for the vademecum CLI.
//
// Format selection rules:
//   - If stdout is a TTY, default to the styled text view
//   - If stdout is not a TTY, default to json
//   - --format always overrides the default
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/vademecum/build"
	"github.com/pithecene-io/vademecum/types"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat parses a format string, returning an error for invalid
// formats. Empty means "let the TTY default decide".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json or text)", s)
	}
}

// Styles for the text view.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(18)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))
)

// Renderer handles output formatting.
type Renderer struct {
	format Format
	out    io.Writer
}

// NewRenderer creates a renderer from CLI context, applying the TTY
// default when no format flag is set.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		if isTTY(os.Stdout) {
			format = FormatText
		} else {
			format = FormatJSON
		}
	}
	return &Renderer{format: format, out: os.Stdout}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, out io.Writer) *Renderer {
	return &Renderer{format: format, out: out}
}

// Result renders a build result summary.
func (r *Renderer) Result(res *build.Result) error {
	if r.format == FormatJSON {
		return r.renderJSON(res.Manifest)
	}

	fmt.Fprintln(r.out, titleStyle.Render(fmt.Sprintf("vademecum %s build %s", res.Mode, res.Manifest.Version)))
	r.kv("output", res.OutputPath)
	if res.RemovalsPath != "" {
		r.kv("removals", res.RemovalsPath)
	}
	r.kv("sha256", res.Manifest.SHA256)
	r.kv("size", fmt.Sprintf("%d bytes", res.Manifest.Size))
	r.kv("base version", res.Manifest.BaseVersion)
	r.renderStats(res.Manifest.Stats)
	r.kv("duration", res.Duration.Truncate(1e6).String())
	return nil
}

// Manifest renders a manifest for the inspect command.
func (r *Renderer) Manifest(m types.Manifest) error {
	if r.format == FormatJSON {
		return r.renderJSON(m)
	}

	fmt.Fprintln(r.out, titleStyle.Render("manifest "+m.Version))
	r.kv("mode", string(m.Mode))
	r.kv("file", m.File)
	if m.DeletedFile != "" {
		r.kv("deleted file", m.DeletedFile)
	}
	r.kv("sha256", m.SHA256)
	r.kv("size", fmt.Sprintf("%d bytes", m.Size))
	r.kv("generated at", m.GeneratedAt)
	r.kv("base version", m.BaseVersion)
	names := make([]string, 0, len(m.SourceVersions))
	for name := range m.SourceVersions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.kv("source "+name, m.SourceVersions[name])
	}
	r.renderStats(m.Stats)
	return nil
}

// State renders a run state for the inspect command.
func (r *Renderer) State(st types.RunState) error {
	if r.format == FormatJSON {
		return r.renderJSON(st)
	}

	fmt.Fprintln(r.out, titleStyle.Render("run state"))
	r.kv("last success", st.LastSuccessVersion)
	r.kv("last full", st.LastFullVersion)
	r.kv("cutoff date", st.LastIncrementalDate)
	r.kv("full records", fmt.Sprint(st.TotalFullRecords))
	r.renderStats(st.StatsLastRun)
	if n := len(st.FailedRegistrations); n > 0 {
		r.kv("failed ids", warnStyle.Render(fmt.Sprint(n)))
	}
	return nil
}

func (r *Renderer) renderStats(stats types.BuildStats) {
	r.kv("processed", fmt.Sprint(stats.ProcessedProducts))
	r.kv("emitted", fmt.Sprint(stats.EmittedRecords))
	r.kv("removed", fmt.Sprint(stats.RemovedRecords))
	if stats.Errors > 0 {
		r.kv("errors", warnStyle.Render(fmt.Sprint(stats.Errors)))
	} else {
		r.kv("errors", "0")
	}
}

func (r *Renderer) kv(label, value string) {
	fmt.Fprintf(r.out, "%s %s\n", labelStyle.Render(label), value)
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// isTTY returns true if the writer is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
