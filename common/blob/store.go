package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/liqk/gate/common/logger"
)

// ErrTooLarge means a write ran past the request's cumulative size budget.
// The in-flight file is already gone when this is returned.
var ErrTooLarge = errors.New("upload size ceiling exceeded")

const copyBufSize = 256 * 1024

// Budget tracks the cumulative upload ceiling across one request. It is
// confined to a single request goroutine and needs no locking.
type Budget struct {
	remaining int64
}

// NewBudget creates a budget of limit bytes
func NewBudget(limit int64) *Budget {
	return &Budget{remaining: limit}
}

// take consumes n bytes, reporting false once the budget is exhausted
func (b *Budget) take(n int64) bool {
	b.remaining -= n
	return b.remaining >= 0
}

// Store keeps physical blobs as flat files under one directory. Writes
// land in a temp file and are renamed into place, so concurrent readers
// of an existing name never observe a torn file; concurrent writers to
// the same name are last-write-wins.
type Store struct {
	dir    string
	logger *logger.Logger
}

// NewStore creates the blob directory if needed and returns a store
func NewStore(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &Store{dir: dir, logger: log}, nil
}

// Dir returns the store's base directory
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the on-disk path for a stored name. The name is reduced to
// its base component so graph-supplied values cannot escape the directory.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Exists reports whether a stored name is present on disk
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// Size returns a stored blob's byte size
func (s *Store) Size(name string) (int64, error) {
	info, err := os.Stat(s.Path(name))
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", name, err)
	}
	return info.Size(), nil
}

// Write streams r into the stored name, debiting budget as bytes arrive.
// Exceeding the budget aborts the write, removes the partial file, and
// returns ErrTooLarge; nothing is ever silently truncated. On success the
// temp file is renamed into place atomically.
func (s *Store) Write(name string, r io.Reader, budget *Budget) (int64, error) {
	tmpName := ".tmp-" + uuid.NewString()
	tmpPath := filepath.Join(s.dir, tmpName)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating temp blob: %w", err)
	}

	written, err := s.copyBudgeted(f, r, budget)
	if err != nil {
		f.Close()
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			s.logger.Warn("failed to remove partial blob", "path", tmpPath, "error", rmErr)
		}
		return 0, err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing temp blob: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path(name)); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming blob into place: %w", err)
	}

	return written, nil
}

func (s *Store) copyBudgeted(dst io.Writer, src io.Reader, budget *Budget) (int64, error) {
	buf := make([]byte, copyBufSize)
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if !budget.take(int64(n)) {
				return written, ErrTooLarge
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("writing blob: %w", err)
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("reading upload stream: %w", readErr)
		}
	}
}

// Remove deletes a stored blob. Missing files are not an error.
func (s *Store) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing blob %s: %w", name, err)
	}
	return nil
}
