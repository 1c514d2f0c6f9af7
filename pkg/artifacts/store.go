// Package artifacts persists stage results as plain text files and makes
// repeated runs on the same input cost-free: the presence of a file at
// the expected path is the cache signal.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mudler/recap/core/schema"
)

// CacheIOError wraps artifact read/write failures. Cache errors indicate
// an environment problem and are never retried.
type CacheIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("artifact cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheIOError) Unwrap() error { return e.Err }

// Store keeps one artifact file per (input base name, kind) under a
// single output directory.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &CacheIOError{Op: "mkdir", Path: dir, Err: err}
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory the store writes under.
func (s *Store) Dir() string { return s.dir }

// Path returns the deterministic artifact path for (input, kind).
func (s *Store) Path(in schema.MediaInput, kind schema.ArtifactKind) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s.txt", in.BaseName(), kind))
}

// Has reports whether an artifact of the given kind exists for the
// input. It only stats the filesystem.
func (s *Store) Has(in schema.MediaInput, kind schema.ArtifactKind) bool {
	info, err := os.Stat(s.Path(in, kind))
	return err == nil && !info.IsDir()
}

// Load reads a cached artifact. Absence is reported through the boolean,
// not an error; errors are genuine I/O failures.
func (s *Store) Load(in schema.MediaInput, kind schema.ArtifactKind) (string, bool, error) {
	path := s.Path(in, kind)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, &CacheIOError{Op: "read", Path: path, Err: err}
	}
	return string(data), true, nil
}

// Save writes the artifact atomically: content goes to a temp file in the
// same directory, is synced, then renamed over the final path. A crash
// mid-write never leaves a partial artifact visible to Has or Load.
func (s *Store) Save(in schema.MediaInput, kind schema.ArtifactKind, content string) (schema.Artifact, error) {
	path := s.Path(in, kind)

	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".%s.%s.*", in.BaseName(), kind))
	if err != nil {
		return schema.Artifact{}, &CacheIOError{Op: "write", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return schema.Artifact{}, &CacheIOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return schema.Artifact{}, &CacheIOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return schema.Artifact{}, &CacheIOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return schema.Artifact{}, &CacheIOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return schema.Artifact{}, &CacheIOError{Op: "rename", Path: path, Err: err}
	}

	return schema.Artifact{Kind: kind, Input: in.BaseName(), Path: path, Content: content}, nil
}
