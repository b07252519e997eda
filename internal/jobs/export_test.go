package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/iptvproxy/internal/portal"
)

func TestExporter_WritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{channels: sampleCatalog()}
	e := NewExporter(newTestBuilder(t, src, Config{}), dir, testBase)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	st, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixed, st.LastSuccess)
	assert.Equal(t, 2, st.Channels)
	assert.Empty(t, st.Error)
	assert.NoError(t, e.Check(context.Background()))

	m3u, err := os.ReadFile(filepath.Join(dir, PlaylistFile))
	require.NoError(t, err)
	assert.Contains(t, string(m3u), "#EXTM3U")

	xml, err := os.ReadFile(filepath.Join(dir, XMLTVFile))
	require.NoError(t, err)
	assert.Contains(t, string(xml), "<tv ")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestExporter_FailureKeepsFilesAndReportsError(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{channels: sampleCatalog()}
	e := NewExporter(newTestBuilder(t, src, Config{}), dir, testBase)

	first, err := e.Run(context.Background())
	require.NoError(t, err)

	src.setErr(portal.ErrNetwork)
	st, err := e.Run(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, st.Error)
	assert.Equal(t, first.LastSuccess, st.LastSuccess)
	assert.Error(t, e.Check(context.Background()))

	// Last good copies were re-exported.
	_, statErr := os.Stat(filepath.Join(dir, PlaylistFile))
	assert.NoError(t, statErr)
}

func TestExporter_ColdFailure(t *testing.T) {
	src := &fakeSource{err: portal.ErrAuth}
	e := NewExporter(newTestBuilder(t, src, Config{}), t.TempDir(), testBase)

	_, err := e.Run(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, portal.ErrAuth)
}

func TestExporter_RejectsOverlappingRuns(t *testing.T) {
	src := &fakeSource{channels: sampleCatalog(), gate: make(chan struct{})}
	e := NewExporter(newTestBuilder(t, src, Config{}), t.TempDir(), testBase)

	done := make(chan error, 1)
	go func() {
		_, err := e.Run(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return src.callCount() == 1 }, time.Second, time.Millisecond)

	_, err := e.Run(context.Background())
	assert.ErrorIs(t, err, ErrExportRunning)

	close(src.gate)
	assert.NoError(t, <-done)
}

func TestExporter_UnwritableDir(t *testing.T) {
	src := &fakeSource{channels: sampleCatalog()}
	e := NewExporter(newTestBuilder(t, src, Config{}), filepath.Join(t.TempDir(), "missing"), testBase)

	_, err := e.Run(context.Background())
	assert.Error(t, err)
}
