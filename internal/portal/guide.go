// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package portal

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/iptvproxy/internal/log"
	"github.com/ManuGH/iptvproxy/internal/metrics"
)

const (
	guidePast   = 2 * 24 * time.Hour
	guideFuture = 5 * 24 * time.Hour
)

type playbillList struct {
	Lites []playbill `json:"playbillLites"`
}

type playbill struct {
	Name      string `json:"name"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

// GuideWindow returns the [begin, end] range in epoch milliseconds used for
// guide requests made at now.
func GuideWindow(now time.Time) (int64, int64) {
	return now.Add(-guidePast).UnixMilli(), now.Add(guideFuture).UnixMilli()
}

// FetchGuide fills the Programs of every channel. Requests run concurrently,
// bounded by GuideConcurrency and paced by GuideRPS. A channel whose request
// fails keeps an empty program list; the result has the same order and length
// as the input.
func (c *Client) FetchGuide(ctx context.Context, sess *Session, channels []Channel) []Channel {
	logger := xglog.WithContext(ctx, c.log)
	start := time.Now()
	begin, end := GuideWindow(c.now())

	out := make([]Channel, len(channels))
	failed := make([]bool, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.GuideConcurrency)
	for i := range channels {
		out[i] = channels[i]
		out[i].Programs = nil
		g.Go(func() error {
			programs, err := c.fetchPrograms(gctx, sess, channels[i].ID, begin, end)
			if err != nil {
				failed[i] = true
				metrics.RecordGuideChannel(false)
				logger.Debug().
					Err(err).
					Str(xglog.FieldEvent, "guide.channel_failed").
					Uint64(xglog.FieldChannelID, channels[i].ID).
					Msg("program guide unavailable for channel")
				return nil
			}
			metrics.RecordGuideChannel(true)
			out[i].Programs = programs
			return nil
		})
	}
	_ = g.Wait()

	total, nFailed := 0, 0
	for i := range out {
		total += len(out[i].Programs)
		if failed[i] {
			nFailed++
		}
	}
	metrics.ObserveGuideFetch(time.Since(start))
	logger.Info().
		Str(xglog.FieldEvent, "guide.collected").
		Int(xglog.FieldChannelCount, len(out)).
		Int("failed_channels", nFailed).
		Int(xglog.FieldProgramCount, total).
		Dur("duration", time.Since(start)).
		Msg("program guide collected")
	return out
}

func (c *Client) fetchPrograms(ctx context.Context, sess *Session, id uint64, begin, end int64) ([]Program, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, newError(ErrNetwork, "guide", 0, err)
		}
	}

	q := url.Values{}
	q.Set("channelId", strconv.FormatUint(id, 10))
	q.Set("begin", strconv.FormatInt(begin, 10))
	q.Set("end", strconv.FormatInt(end, 10))
	rawURL := sess.BaseURL + "/EPG/jsp/iptvsnmv3/en/play/ajax/_ajax_getPlaybillList.jsp?" + q.Encode()

	body, err := c.get(ctx, sess.HTTP, "guide", rawURL, ErrParse)
	if err != nil {
		return nil, err
	}

	var list playbillList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, newError(ErrParse, "guide", 0, err)
	}

	programs := make([]Program, 0, len(list.Lites))
	for _, b := range list.Lites {
		if b.StartTime >= b.EndTime {
			continue
		}
		programs = append(programs, Program{
			Start: b.StartTime,
			Stop:  b.EndTime,
			Title: b.Name,
			Desc:  b.Name,
		})
	}
	return programs, nil
}

// FetchChannels runs handshake, catalog and optionally the guide fan-out.
// It fails only when the handshake or the catalog fails.
func (c *Client) FetchChannels(ctx context.Context, ep Endpoint, withGuide bool) ([]Channel, error) {
	sess, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.HTTP.CloseIdleConnections()

	channels, err := c.FetchCatalog(ctx, sess, ep)
	if err != nil {
		return nil, err
	}
	if !withGuide {
		return channels, nil
	}
	return c.FetchGuide(ctx, sess, channels), nil
}
