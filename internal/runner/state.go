// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StateStore handles reading and writing run state.
type StateStore struct {
	baseDir string
}

// NewStateStore creates a store at the given base directory (e.g. .seriescheck-out/run).
func NewStateStore(baseDir string) *StateStore {
	return &StateStore{baseDir: baseDir}
}

func (s *StateStore) Dir() string { return s.baseDir }

// LogDir is where raw checker snapshots go.
func (s *StateStore) LogDir() string { return filepath.Join(s.baseDir, "logs") }

func (s *StateStore) lastRunPath() string {
	return filepath.Join(s.baseDir, "last-run.json")
}

func (s *StateStore) resultPath(commit, check string) string {
	return filepath.Join(s.baseDir, "results", shortSHA(commit), check+".json")
}

// ReadLastRun loads the last execution summary. A missing file is a clean
// state and returns nil, nil.
func (s *StateStore) ReadLastRun() (*LastRun, error) {
	var last LastRun
	found, err := readJSON(s.lastRunPath(), &last)
	if err != nil || !found {
		return nil, err
	}
	return &last, nil
}

// ReadCheckResult loads one persisted result, nil if there is none.
func (s *StateStore) ReadCheckResult(commit, check string) (*CheckResult, error) {
	var res CheckResult
	found, err := readJSON(s.resultPath(commit, check), &res)
	if err != nil || !found {
		return nil, err
	}
	return &res, nil
}

// WriteLastRun saves the execution summary.
func (s *StateStore) WriteLastRun(last LastRun) error {
	return writeJSON(s.lastRunPath(), last)
}

// WriteCheckResult saves the result of one check on one commit.
func (s *StateStore) WriteCheckResult(res CheckResult) error {
	return writeJSON(s.resultPath(res.Commit, res.Check), res)
}

// Reset clears the state directory.
func (s *StateStore) Reset() error {
	return os.RemoveAll(s.baseDir)
}

func readJSON(path string, v any) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, append(data, '\n'))
}

// atomicWrite replaces path through a temp file in the same directory so a
// reader never sees a partially written state file.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".state-tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving temp file to %s: %w", path, err)
	}
	return nil
}
