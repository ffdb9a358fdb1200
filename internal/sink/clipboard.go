package sink

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/msmolkin/nwsharvest/internal/harvest"
)

// ClipboardSink copies the rendered transcript to the system clipboard,
// wrapped in a clip marker pair so downstream paste targets can find the
// payload boundaries.
type ClipboardSink struct {
	// copyFn is swapped in tests; defaults to clipboard.WriteAll.
	copyFn func(string) error
}

// NewClipboardSink builds a ClipboardSink.
func NewClipboardSink() *ClipboardSink {
	return &ClipboardSink{copyFn: clipboard.WriteAll}
}

// Write copies the transcript to the clipboard.
func (s *ClipboardSink) Write(t harvest.Transcript) error {
	payload := "<clip>\n\n" + t.Render() + "\n\n</clip>"
	if err := s.copyFn(payload); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
