// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/iptvproxy/internal/log"
	"github.com/ManuGH/iptvproxy/internal/metrics"
)

// Export file names inside the data directory.
const (
	PlaylistFile = "playlist.m3u"
	XMLTVFile    = "xmltv.xml"
)

// ErrExportRunning is returned when an export is already in progress.
var ErrExportRunning = errors.New("jobs: export already running")

// Exporter writes the playlist and guide to the data directory.
type Exporter struct {
	builder *Builder
	dir     string
	base    Base
	now     func() time.Time
	logger  zerolog.Logger

	run    sync.Mutex
	mu     sync.RWMutex
	status Status
}

// NewExporter creates an exporter writing to dir with links built from base.
func NewExporter(b *Builder, dir string, base Base) *Exporter {
	return &Exporter{
		builder: b,
		dir:     dir,
		base:    base,
		now:     time.Now,
		logger:  xglog.WithComponent("export"),
	}
}

// Run builds both artifacts and replaces the exported files atomically.
// A fallback copy is written like a fresh one but the run counts as failed.
func (e *Exporter) Run(ctx context.Context) (Status, error) {
	if !e.run.TryLock() {
		return e.Status(), ErrExportRunning
	}
	defer e.run.Unlock()

	ctx = xglog.ContextWithJobID(ctx, "export-"+e.now().UTC().Format("20060102T150405"))
	logger := xglog.WithContext(ctx, e.logger)
	logger.Info().Str(xglog.FieldEvent, "export.start").Msg("starting export")

	started := e.now()
	var errs []error
	channels := 0

	pl, err := e.builder.Playlist(ctx, e.base)
	switch {
	case err != nil:
		errs = append(errs, err)
	default:
		channels = pl.Channels
		if werr := writeFile(filepath.Join(e.dir, PlaylistFile), pl.Body); werr != nil {
			errs = append(errs, werr)
		} else if pl.Fallback {
			errs = append(errs, errors.New("playlist build failed, exported last good copy"))
		}
	}

	tv, err := e.builder.XMLTV(ctx, e.base)
	switch {
	case err != nil:
		errs = append(errs, err)
	default:
		if werr := writeFile(filepath.Join(e.dir, XMLTVFile), tv.Body); werr != nil {
			errs = append(errs, werr)
		} else if tv.Fallback {
			errs = append(errs, errors.New("guide build failed, exported last good copy"))
		}
	}

	err = errors.Join(errs...)
	e.mu.Lock()
	e.status.LastRun = started
	e.status.Channels = channels
	e.status.Error = ""
	if err != nil {
		e.status.Error = err.Error()
	} else {
		e.status.LastSuccess = started
		metrics.MarkExport(started)
	}
	st := e.status
	e.mu.Unlock()

	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "export.failed").Msg("export finished with errors")
		return st, err
	}
	logger.Info().
		Str(xglog.FieldEvent, "export.done").
		Int(xglog.FieldChannelCount, channels).
		Str(xglog.FieldPath, e.dir).
		Msg("export finished")
	return st, nil
}

// Status returns the outcome of the last run.
func (e *Exporter) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Check reports whether the last run failed; an exporter that never ran is
// healthy.
func (e *Exporter) Check(context.Context) error {
	st := e.Status()
	if st.Error != "" {
		return fmt.Errorf("last export failed: %s", st.Error)
	}
	return nil
}

// writeFile replaces path atomically: the data is synced before the rename.
func writeFile(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", path, err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}
