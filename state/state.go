// Package state persists the cross-run memory between builds.
//
// The state file is the sole carrier of run-to-run state: it is read once at
// the start of an incremental run and fully replaced at the end of every
// successful run. A missing or corrupt file is not an error; it makes the
// next incremental run fall back to a full build.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pithecene-io/vademecum/types"
)

// Load reads the prior run's state. Returns (nil, nil) when the file does
// not exist and (nil, err) when it exists but cannot be parsed; callers
// treat both as "no usable prior state".
func Load(path string) (*types.RunState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}

	var st types.RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return &st, nil
}

// Save atomically replaces the state file: the new state is written to a
// temp file in the same directory and renamed over the target, so a crash
// mid-write can never leave a half-written state behind. Missing parent
// directories are created.
func Save(path string, st types.RunState) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state %s: %w", path, err)
	}
	return nil
}
