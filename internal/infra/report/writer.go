package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
)

type File struct {
	Name string
	Data []byte
}

// WriteReports writes every file into dir, replacing the previous run's copy.
// All files are staged as temp files first; only when every one of them is
// on disk are they renamed into place, so a failed write leaves the previous
// report set untouched.
func WriteReports(dir string, files []File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	staged := make([]string, 0, len(files))
	defer func() {
		// sisa temp file (kalau gagal) dibersihkan
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()
	for _, f := range files {
		tmp, err := stage(filepath.Join(dir, f.Name), f.Data)
		if err != nil {
			return fmt.Errorf("write report %s: %w", f.Name, err)
		}
		staged = append(staged, tmp)
	}

	for i, f := range files {
		if err := os.Rename(staged[i], filepath.Join(dir, f.Name)); err != nil {
			return fmt.Errorf("write report %s: %w", f.Name, err)
		}
	}
	return nil
}

// stage writes data next to path and returns the temp file name.
func stage(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// RemoveStale deletes report files that no longer describe the current run.
// Files that are already gone are ignored.
func RemoveStale(dir string, names ...string) error {
	var errs []error
	for _, name := range names {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReadRun loads a security_summary.json written by a previous run.
func ReadRun(path string) (*domain.ScanRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run domain.ScanRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &run, nil
}
