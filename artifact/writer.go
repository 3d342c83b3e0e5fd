// Package artifact writes the build's output artifacts: gzip JSONL record
// files, gzip plain-text removal files, the manifest, and the optional S3
// publication of finished files.
//
// Writers are write-once and sequential; there is no rewind or partial
// rewrite. Any write failure is fatal for the run.
package artifact

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pithecene-io/vademecum/types"
)

// RecordWriter appends records to a gzip-compressed line-delimited JSON
// file: one record per line, UTF-8, no BOM, \n line endings. HTML escaping
// is disabled so non-ASCII text and document URLs stay literal.
type RecordWriter struct {
	file *os.File
	gz   *gzip.Writer
	enc  *json.Encoder
}

// NewRecordWriter creates the output file, including missing parent
// directories, truncating any previous content.
func NewRecordWriter(path string) (*RecordWriter, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}
	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	enc.SetEscapeHTML(false)
	return &RecordWriter{file: f, gz: gz, enc: enc}, nil
}

// Append writes one record as a single JSON line.
func (w *RecordWriter) Append(rec types.Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("append record cn=%s: %w", rec.CN, err)
	}
	return nil
}

// Close flushes the gzip stream and closes the file. The artifact is not
// complete until Close returns nil.
func (w *RecordWriter) Close() error {
	if err := w.gz.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("finish %s: %w", w.file.Name(), err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.file.Name(), err)
	}
	return nil
}

// LineWriter appends plain text lines to a gzip-compressed file. Used for
// the removals artifact: one normalized national code per line.
type LineWriter struct {
	file *os.File
	gz   *gzip.Writer
}

// NewLineWriter creates the output file, including missing parent
// directories.
func NewLineWriter(path string) (*LineWriter, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}
	return &LineWriter{file: f, gz: gzip.NewWriter(f)}, nil
}

// Append writes one line.
func (w *LineWriter) Append(line string) error {
	if _, err := w.gz.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("append line to %s: %w", w.file.Name(), err)
	}
	return nil
}

// Close flushes the gzip stream and closes the file.
func (w *LineWriter) Close() error {
	if err := w.gz.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("finish %s: %w", w.file.Name(), err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.file.Name(), err)
	}
	return nil
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent of %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
