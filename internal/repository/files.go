package repository

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/alexanderramin/aceflow/internal/domain"
)

// WriteFileAtomic replaces path with data by writing a sibling temp file and
// renaming it over the target. A failed write leaves the previous content in
// place. Errors wrap domain.ErrPersistence.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", domain.ErrPersistence, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file for %s: %v", domain.ErrPersistence, path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPersistence, path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: syncing %s: %v", domain.ErrPersistence, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", domain.ErrPersistence, path, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", domain.ErrPersistence, path, err)
	}
	if err := renameWithRetry(tmpPath, path, 3, 100*time.Millisecond); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", domain.ErrPersistence, path, err)
	}
	return nil
}

// renameWithRetry retries transient rename failures on Windows, where another
// process holding the target open makes the rename fail.
func renameWithRetry(oldPath, newPath string, maxRetries int, delay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := os.Rename(oldPath, newPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			break
		}
		if attempt < maxRetries {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return lastErr
}

// FileExists reports whether path exists. Stat errors other than not-exist
// are returned.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// CopyFile copies src to dst atomically, keeping src's permissions.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return WriteFileAtomic(dst, data, info.Mode().Perm())
}

// CopyDir copies the tree at src into dst. dst is created when missing;
// existing files are overwritten.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		info, err := in.Stat()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	})
}

// ReplaceDir rebuilds dir from scratch. fill populates a sibling staging
// directory; only when it succeeds is the staging directory swapped in and
// the old tree removed. On failure dir is left untouched.
func ReplaceDir(dir string, fill func(staging string) error) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", domain.ErrPersistence, parent, err)
	}
	staging, err := os.MkdirTemp(parent, filepath.Base(dir)+".new.*")
	if err != nil {
		return fmt.Errorf("%w: staging %s: %v", domain.ErrPersistence, dir, err)
	}
	defer func() { _ = os.RemoveAll(staging) }()
	if err := os.Chmod(staging, 0o755); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", domain.ErrPersistence, staging, err)
	}

	if err := fill(staging); err != nil {
		return fmt.Errorf("%w: populating %s: %v", domain.ErrPersistence, dir, err)
	}

	old := ""
	if exists, _ := FileExists(dir); exists {
		old = fmt.Sprintf("%s.old.%d", dir, time.Now().UnixNano())
		if err := renameWithRetry(dir, old, 3, 100*time.Millisecond); err != nil {
			return fmt.Errorf("%w: moving %s aside: %v", domain.ErrPersistence, dir, err)
		}
	}
	if err := renameWithRetry(staging, dir, 3, 100*time.Millisecond); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("%w: swapping in %s: %v", domain.ErrPersistence, dir, err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}
