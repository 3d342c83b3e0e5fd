package nomenclator

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/pithecene-io/vademecum/artifact"
	"github.com/pithecene-io/vademecum/iox"
)

// Options configures Load. URL takes precedence over Path; when both are
// empty the table is simply unavailable.
type Options struct {
	// URL downloads the source file into OutDir before parsing.
	URL string
	// Path reads a local source file.
	Path string
	// OutDir receives the downloaded source file.
	OutDir string
	// Timeout bounds the download request.
	Timeout time.Duration
}

// Load acquires and parses the nomenclator source. Callers treat a non-nil
// error as "table unavailable" and proceed without enrichment; Load itself
// never aborts a build.
func Load(ctx context.Context, opts Options) (*Table, error) {
	var sourcePath, sourceRef string

	switch {
	case opts.URL != "":
		downloaded, err := download(ctx, opts.URL, opts.OutDir, opts.Timeout)
		if err != nil {
			return nil, fmt.Errorf("download nomenclator: %w", err)
		}
		digest, err := artifact.SHA256File(downloaded)
		if err != nil {
			return nil, fmt.Errorf("digest nomenclator: %w", err)
		}
		sourcePath = downloaded
		sourceRef = opts.URL + "#" + digest
	case opts.Path != "":
		if _, err := os.Stat(opts.Path); err != nil {
			return nil, fmt.Errorf("nomenclator path: %w", err)
		}
		digest, err := artifact.SHA256File(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("digest nomenclator: %w", err)
		}
		sourcePath = opts.Path
		sourceRef = filepath.Base(opts.Path) + "#" + digest
	default:
		return nil, errors.New("no nomenclator source configured")
	}

	var (
		byCN map[string]Entry
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(sourcePath)); ext {
	case ".csv", ".txt":
		byCN, err = loadCSV(sourcePath)
	case ".xls", ".xlsx":
		byCN, err = loadExcel(sourcePath)
	default:
		return nil, fmt.Errorf("unsupported nomenclator format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse nomenclator %s: %w", sourcePath, err)
	}

	return &Table{byCN: byCN, sourceRef: sourceRef}, nil
}

// loadCSV parses a delimited text file. The delimiter is detected from a
// sample; the first row is treated as a header when it yields any known
// column alias, otherwise rows are keyed positionally and the national code
// is found by scanning values.
func loadCSV(path string) (map[string]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := decodeText(raw)

	delimiter := detectDelimiter(content)
	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return map[string]Entry{}, nil
	}

	if hasHeader(records[0]) {
		header := records[0]
		rows := make([]map[string]string, 0, len(records)-1)
		for _, rec := range records[1:] {
			row := make(map[string]string, len(header))
			for i, name := range header {
				if i < len(rec) {
					row[name] = rec[i]
				}
			}
			rows = append(rows, row)
		}
		if mapped := parseRows(rows); len(mapped) > 0 {
			return mapped, nil
		}
	}

	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		row := make(map[string]string, len(rec))
		for i, v := range rec {
			row[fmt.Sprintf("col_%d", i)] = v
		}
		rows = append(rows, row)
	}
	return parseRows(rows), nil
}

// loadExcel parses the first sheet of an XLS/XLSX workbook, first row as
// header.
func loadExcel(path string) (map[string]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(f)

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return map[string]Entry{}, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return map[string]Entry{}, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return parseRows(rows), nil
}

// hasHeader reports whether the first record looks like a header row: any
// cell matches a known column alias.
func hasHeader(first []string) bool {
	known := make(map[string]bool)
	for _, aliases := range [][]string{cnAliases, financedAliases, priceAliases, routeAliases, labAliases} {
		for _, a := range aliases {
			known[a] = true
		}
	}
	for _, cell := range first {
		if known[strings.ToLower(strings.TrimSpace(cell))] {
			return true
		}
	}
	return false
}

// detectDelimiter scores candidate delimiters over the first sample lines:
// the winner splits the most lines into more than one field, with average
// width as tie-break.
func detectDelimiter(content string) rune {
	candidates := []rune{',', ';', '\t', '|'}

	var lines []string
	for _, line := range strings.SplitN(content, "\n", 21) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
		if len(lines) == 20 {
			break
		}
	}
	if len(lines) == 0 {
		return ','
	}

	best := ','
	bestSplits, bestAvg := 0, 0.0
	for _, delim := range candidates {
		splits, total := 0, 0
		for _, line := range lines {
			width := len(strings.Split(line, string(delim)))
			total += width
			if width > 1 {
				splits++
			}
		}
		avg := float64(total) / float64(len(lines))
		if splits > bestSplits || (splits == bestSplits && avg > bestAvg) {
			best, bestSplits, bestAvg = delim, splits, avg
		}
	}
	return best
}

// decodeText returns the file content as UTF-8, stripping a BOM and falling
// back to Windows-1252 for legacy exports that are not valid UTF-8.
func decodeText(raw []byte) string {
	raw = stripBOM(raw)
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := io.ReadAll(charmap.Windows1252.NewDecoder().Reader(strings.NewReader(string(raw))))
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func stripBOM(raw []byte) []byte {
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		return raw[3:]
	}
	return raw
}

// download fetches the source file into outDir, guessing the extension from
// the content type or the URL.
func download(ctx context.Context, rawURL, outDir string, timeout time.Duration) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	target := filepath.Join(outDir, "nomenclator_source"+guessExt(resp.Header.Get("Content-Type"), rawURL))
	f, err := os.Create(target)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return target, nil
}

func guessExt(contentType, rawURL string) string {
	ct := strings.ToLower(contentType)
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, ".csv") || strings.Contains(ct, "csv"):
		return ".csv"
	case strings.Contains(u, ".xlsx"):
		return ".xlsx"
	case strings.Contains(u, ".xls"):
		return ".xls"
	case strings.Contains(u, ".txt") || strings.Contains(ct, "text"):
		return ".txt"
	default:
		return ".csv"
	}
}
