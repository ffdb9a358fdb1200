// Package sink persists finished transcripts. Sink failures are reported to
// the caller but never invalidate the harvest that produced the transcript.
package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/msmolkin/nwsharvest/internal/harvest"
)

// FileSink writes transcripts to a directory on disk.
type FileSink struct {
	dir string
}

// NewFileSink builds a FileSink rooted at dir, creating it if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Write persists the transcript under the given file name and returns the
// full path written.
func (s *FileSink) Write(name string, t harvest.Transcript) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(t.Render()), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}
