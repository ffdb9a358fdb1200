package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msmolkin/nwsharvest/internal/harvest"
)

func sampleTranscript() harvest.Transcript {
	return harvest.Assemble(map[int]string{
		1: "newest bulletin",
		3: "oldest bulletin",
	})
}

func TestFileSinkWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileSink(dir)
	require.NoError(t, err)

	path, err := s.Write("weather_reports_OKX_NYC.txt", sampleTranscript())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "weather_reports_OKX_NYC.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, sampleTranscript().Render(), string(data))
}

func TestFileSinkCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")
	s, err := NewFileSink(dir)
	require.NoError(t, err)

	_, err = s.Write("out.txt", sampleTranscript())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestFileSinkOverwrites(t *testing.T) {
	t.Parallel()

	s, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	first := harvest.Assemble(map[int]string{1: "first run"})
	second := harvest.Assemble(map[int]string{1: "second run"})

	path, err := s.Write("out.txt", first)
	require.NoError(t, err)
	_, err = s.Write("out.txt", second)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, second.Render(), string(data))
}

func TestClipboardSinkWrapsPayload(t *testing.T) {
	t.Parallel()

	var copied string
	s := NewClipboardSink()
	s.copyFn = func(text string) error {
		copied = text
		return nil
	}

	require.NoError(t, s.Write(sampleTranscript()))

	require.Equal(t, "<clip>\n\n"+sampleTranscript().Render()+"\n\n</clip>", copied)
}

func TestClipboardSinkPropagatesError(t *testing.T) {
	t.Parallel()

	s := NewClipboardSink()
	s.copyFn = func(string) error { return os.ErrPermission }

	err := s.Write(sampleTranscript())
	require.ErrorIs(t, err, os.ErrPermission)
}
