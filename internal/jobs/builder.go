// SPDX-License-Identifier: MIT

package jobs

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/iptvproxy/internal/cache"
	"github.com/ManuGH/iptvproxy/internal/epg"
	xglog "github.com/ManuGH/iptvproxy/internal/log"
	"github.com/ManuGH/iptvproxy/internal/mapping"
	"github.com/ManuGH/iptvproxy/internal/metrics"
	"github.com/ManuGH/iptvproxy/internal/playlist"
	"github.com/ManuGH/iptvproxy/internal/portal"
	"github.com/ManuGH/iptvproxy/internal/telemetry"
)

const (
	artifactPlaylist = "playlist"
	artifactXMLTV    = "xmltv"
)

// Config holds the reloadable build settings.
type Config struct {
	RTSPProxy     bool
	UDPProxy      bool
	ExtraPlaylist string
	ExtraXMLTV    string
	Mapping       mapping.Table
}

// Builder renders playlists and guides. Concurrent requests for the same
// artifact share one build; a failed build falls back to the last good copy.
type Builder struct {
	src    ChannelSource
	store  mapping.Store
	cache  cache.Cache
	extra  *http.Client
	cfg    atomic.Pointer[Config]
	group  singleflight.Group
	logger zerolog.Logger
}

// NewBuilder creates a builder. store may be nil. extra fetches the
// operator-configured extra sources.
func NewBuilder(src ChannelSource, c cache.Cache, store mapping.Store, extra *http.Client, cfg Config) *Builder {
	b := &Builder{
		src:    src,
		store:  store,
		cache:  c,
		extra:  extra,
		logger: xglog.WithComponent("jobs"),
	}
	b.cfg.Store(&cfg)
	return b
}

// UpdateConfig replaces the build settings; in-flight builds keep the old ones.
func (b *Builder) UpdateConfig(cfg Config) {
	b.cfg.Store(&cfg)
}

// Config returns the current build settings.
func (b *Builder) Config() Config {
	return *b.cfg.Load()
}

// Playlist renders the M3U playlist for clients reaching the proxy at base.
func (b *Builder) Playlist(ctx context.Context, base Base) (Artifact, error) {
	return b.artifact(ctx, artifactPlaylist, base, b.buildPlaylist)
}

// XMLTV renders the program guide for clients reaching the proxy at base.
func (b *Builder) XMLTV(ctx context.Context, base Base) (Artifact, error) {
	return b.artifact(ctx, artifactXMLTV, base, b.buildXMLTV)
}

type buildFunc func(ctx context.Context, cfg Config, base Base) ([]byte, int, error)

func (b *Builder) artifact(ctx context.Context, kind string, base Base, build buildFunc) (Artifact, error) {
	key := kind + ":" + base.String()
	v, err, shared := b.group.Do(key, func() (any, error) {
		// Shared builds outlive the request that started them.
		return b.run(context.WithoutCancel(ctx), kind, key, base, build)
	})
	if shared {
		b.logger.Debug().Str(xglog.FieldOperation, kind).Msg("joined in-flight build")
	}
	if err != nil {
		return Artifact{}, err
	}
	return v.(Artifact), nil
}

func (b *Builder) run(ctx context.Context, kind, key string, base Base, build buildFunc) (Artifact, error) {
	ctx, span := telemetry.Tracer("iptvproxy/jobs").Start(ctx, "build "+kind)
	defer span.End()
	logger := xglog.WithContext(ctx, b.logger)
	start := time.Now()
	cfg := b.Config()

	body, n, err := build(ctx, cfg, base)
	if err == nil {
		span.SetAttributes(telemetry.ArtifactAttributes(kind, n, false)...)
		b.cache.Set(key, body, 0)
		metrics.RecordBuild(kind, "success", time.Since(start))
		logger.Info().
			Str(xglog.FieldEvent, kind+".built").
			Int(xglog.FieldChannelCount, n).
			Int(xglog.FieldBytes, len(body)).
			Dur("duration", time.Since(start)).
			Msg("artifact built")
		return Artifact{Body: body, Channels: n}, nil
	}

	span.RecordError(err)
	if old, ok := b.cache.Get(key); ok {
		span.SetAttributes(telemetry.ArtifactAttributes(kind, 0, true)...)
		metrics.RecordBuild(kind, "fallback", time.Since(start))
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, kind+".fallback").
			Msg("build failed, serving last good copy")
		return Artifact{Body: old, Fallback: true}, nil
	}

	span.SetStatus(codes.Error, "no fallback")
	metrics.RecordBuild(kind, "failure", time.Since(start))
	logger.Error().
		Err(err).
		Str(xglog.FieldEvent, kind+".failed").
		Msg("build failed and no earlier copy exists")
	return Artifact{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, kind, err)
}

func (b *Builder) endpoint(cfg Config, base Base) portal.Endpoint {
	return portal.Endpoint{
		Scheme:    base.Scheme,
		Host:      base.Host,
		ProxyRTSP: cfg.RTSPProxy,
		ProxyUDP:  cfg.UDPProxy,
	}
}

func (b *Builder) mapping(ctx context.Context, cfg Config) mapping.Table {
	table, err := mapping.Effective(ctx, cfg.Mapping, b.store)
	if err != nil {
		b.logger.Warn().Err(err).Msg("mapping store unavailable, using configured mapping only")
	}
	return table
}

func (b *Builder) buildPlaylist(ctx context.Context, cfg Config, base Base) ([]byte, int, error) {
	channels, err := b.src.FetchChannels(ctx, b.endpoint(cfg, base), false)
	if err != nil {
		return nil, 0, err
	}

	items := playlist.Build(channels, playlist.Options{
		PublicBase: base.String(),
		UDPProxy:   cfg.UDPProxy,
		Mapping:    b.mapping(ctx, cfg),
	})

	var extra string
	if cfg.ExtraPlaylist != "" {
		raw, err := fetchExtra(ctx, b.extra, cfg.ExtraPlaylist)
		if err != nil {
			b.logger.Warn().Err(err).Str(xglog.FieldTarget, cfg.ExtraPlaylist).Msg("extra playlist skipped")
		} else {
			ids := make(map[string]bool, len(items))
			for _, it := range items {
				ids[it.TvgID] = true
			}
			var dropped int
			extra, dropped = playlist.WithoutIDs(string(raw), ids)
			if dropped > 0 {
				b.logger.Info().
					Int("dropped", dropped).
					Str(xglog.FieldTarget, cfg.ExtraPlaylist).
					Msg("extra playlist entries shadow catalog channels, skipped")
			}
		}
	}

	var buf bytes.Buffer
	if err := playlist.WriteM3U(&buf, items, extra); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(channels), nil
}

func (b *Builder) buildXMLTV(ctx context.Context, cfg Config, base Base) ([]byte, int, error) {
	channels, err := b.src.FetchChannels(ctx, b.endpoint(cfg, base), true)
	if err != nil {
		return nil, 0, err
	}

	var extra *epg.TV
	if cfg.ExtraXMLTV != "" {
		raw, err := fetchExtra(ctx, b.extra, cfg.ExtraXMLTV)
		if err == nil {
			extra, err = epg.Decode(bytes.NewReader(raw))
		}
		if err != nil {
			b.logger.Warn().Err(err).Str(xglog.FieldTarget, cfg.ExtraXMLTV).Msg("extra guide skipped")
			extra = nil
		}
	}

	var buf bytes.Buffer
	if err := epg.Write(&buf, epg.Build(channels, b.mapping(ctx, cfg), extra)); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(channels), nil
}
