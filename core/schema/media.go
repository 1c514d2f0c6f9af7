package schema

import (
	"path/filepath"
	"strings"
	"time"
)

// MediaInput describes a probed input file. It is immutable once built:
// the pipeline reads it but never changes it.
type MediaInput struct {
	Path     string
	Size     int64
	ModTime  time.Time
	Duration time.Duration
	Format   string
	IsVideo  bool
}

// BaseName returns the file name without directory or extension. Artifact
// files are named after it.
func (m MediaInput) BaseName() string {
	return strings.TrimSuffix(filepath.Base(m.Path), filepath.Ext(m.Path))
}
