// Package store implements the directory-backed object store: key
// resolution, ETag and byte-range arithmetic, and streaming filesystem I/O.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/marmos91/bucketd/pkg/bufpool"
)

// Sentinel errors mapped to HTTP outcomes by the handlers.
var (
	ErrNotFound = errors.New("object not found")
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// Store is a flat key-addressed object store backed by a directory tree.
// All methods are safe for concurrent use; the filesystem itself is the only
// shared mutable state.
type Store struct {
	root string
}

// Object is a read-only projection of a stored file produced while listing.
type Object struct {
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	Modified int64  `json:"modified"`
}

// New creates a Store rooted at dir. The directory is created if missing.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root %q: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute store root directory.
func (s *Store) Root() string {
	return s.root
}

// Resolve maps a key onto a path under the store root. See Resolve.
func (s *Store) Resolve(key string) (string, error) {
	return Resolve(s.root, key)
}

// Stat returns the metadata for the object at path.
func (s *Store) Stat(path string) (Metadata, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Metadata{}, ErrNotFound
		}
		return Metadata{}, err
	}
	return MetadataFromInfo(fi), nil
}

// Open opens the object at path for reading.
func (s *Store) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Write streams body into the object at path, creating parent directories as
// needed. A limit of zero or less means unbounded. The running byte count is
// checked after every chunk; exceeding the limit aborts the write, removes
// the partial file and returns ErrTooLarge. Any read or write failure,
// including the client disconnecting mid-upload, also removes the partial
// file so no partial object is ever left visible.
func (s *Store) Write(ctx context.Context, path string, body io.Reader, limit int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create parent directories: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create object file: %w", err)
	}

	abort := func(cause error) (int64, error) {
		f.Close()
		os.Remove(path)
		return 0, cause
	}

	var written int64
	buf := bufpool.Get(bufpool.ChunkSize)
	defer bufpool.Put(buf)
	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		n, rerr := body.Read(buf)
		if n > 0 {
			written += int64(n)
			if limit > 0 && written > limit {
				return abort(ErrTooLarge)
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				return abort(fmt.Errorf("failed to write object: %w", werr))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return abort(fmt.Errorf("failed to read upload body: %w", rerr))
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to close object file: %w", err)
	}
	return written, nil
}

// Remove deletes the object at path. Missing objects report ErrNotFound so
// a second delete of the same key is deterministically distinguishable from
// the first.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Walk lists objects under base, which must be a path previously produced by
// Resolve (or the store root). A base that is a regular file yields a
// single-element listing. Directories are traversed with an explicit stack;
// subdirectories are descended into only when recursive is set. A missing
// base yields an empty listing. Results are sorted by key for deterministic
// client-side diffing.
func (s *Store) Walk(base string, recursive bool) ([]Object, error) {
	out := []Object{}

	if fi, err := os.Stat(base); err == nil && fi.Mode().IsRegular() {
		out = append(out, Object{
			Key:      keyForPath(s.root, base),
			Size:     fi.Size(),
			Modified: modifiedSecs(fi),
		})
		return out, nil
	}

	stack := []string{base}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read directory %q: %w", dir, err)
		}

		for _, entry := range entries {
			p := filepath.Join(dir, entry.Name())
			switch {
			case entry.IsDir():
				if recursive {
					stack = append(stack, p)
				}
			case entry.Type().IsRegular():
				fi, err := entry.Info()
				if err != nil {
					return nil, fmt.Errorf("failed to stat %q: %w", p, err)
				}
				out = append(out, Object{
					Key:      keyForPath(s.root, p),
					Size:     fi.Size(),
					Modified: modifiedSecs(fi),
				})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func modifiedSecs(fi fs.FileInfo) int64 {
	secs := fi.ModTime().Unix()
	if secs < 0 {
		return 0
	}
	return secs
}
