package portal

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	xglog "github.com/ManuGH/iptvproxy/internal/log"
	"github.com/ManuGH/iptvproxy/internal/metrics"
)

// RawChannelRecord is the key/value set scraped for one channel.
type RawChannelRecord map[string]string

// CatalogParser extracts channel records from the catalog page. The page is
// a script, not an API, so its shape is owned by the portal vendor.
type CatalogParser interface {
	ParseCatalogPage(page string) ([]RawChannelRecord, error)
}

var channelConfigPattern = regexp.MustCompile(`Authentication\.CTCSetConfig\('Channel','(.+?)'\)`)

// ScriptCatalogParser parses the Huawei CTC channel list script, where every
// channel is a call of the form
//
//	Authentication.CTCSetConfig('Channel','ChannelID="1",ChannelName="CCTV-1",...')
type ScriptCatalogParser struct{}

// ParseCatalogPage implements CatalogParser. A page without a single channel
// call is treated as a format change.
func (ScriptCatalogParser) ParseCatalogPage(page string) ([]RawChannelRecord, error) {
	matches := channelConfigPattern.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no channel entries in catalog page", ErrParse)
	}

	records := make([]RawChannelRecord, 0, len(matches))
	for _, m := range matches {
		rec := RawChannelRecord{}
		for _, pair := range strings.Split(m[1], `",`) {
			kv := strings.SplitN(pair, `="`, 2)
			if len(kv) != 2 {
				continue
			}
			rec[strings.TrimSpace(kv[0])] = strings.TrimSuffix(kv[1], `"`)
		}
		records = append(records, rec)
	}
	return records, nil
}

// FetchCatalog downloads and parses the channel list of an authenticated session.
func (c *Client) FetchCatalog(ctx context.Context, sess *Session, ep Endpoint) ([]Channel, error) {
	logger := xglog.WithContext(ctx, c.log)

	body, err := c.get(ctx, sess.HTTP, "catalog", sess.BaseURL+"/EPG/jsp/getchannellistHWCTC.jsp", ErrParse)
	if err != nil {
		return nil, err
	}

	records, err := c.parser.ParseCatalogPage(string(body))
	if err != nil {
		return nil, newError(ErrParse, "catalog", 0, err)
	}

	channels := make([]Channel, 0, len(records))
	seen := make(map[uint64]struct{}, len(records))
	for _, rec := range records {
		ch, reason := buildChannel(rec, ep)
		if reason == "" {
			if _, dup := seen[ch.ID]; dup {
				reason = "duplicate_id"
			}
		}
		if reason != "" {
			metrics.IncCatalogDropped(reason)
			logger.Debug().
				Str(xglog.FieldEvent, "catalog.record_dropped").
				Str("reason", reason).
				Str(xglog.FieldChannelName, rec["ChannelName"]).
				Msg("skipping catalog record")
			continue
		}
		seen[ch.ID] = struct{}{}
		channels = append(channels, ch)
	}

	metrics.SetCatalogChannels(len(channels))
	logger.Info().
		Str(xglog.FieldEvent, "catalog.fetched").
		Int(xglog.FieldChannelCount, len(channels)).
		Int("records", len(records)).
		Msg("channel catalog fetched")
	return channels, nil
}

// buildChannel converts one record; a non-empty reason means the record is dropped.
func buildChannel(rec RawChannelRecord, ep Endpoint) (Channel, string) {
	id, err := strconv.ParseUint(strings.TrimSpace(rec["ChannelID"]), 10, 64)
	if err != nil {
		return Channel{}, "bad_id"
	}
	name := strings.TrimSpace(rec["ChannelName"])
	if name == "" {
		return Channel{}, "missing_name"
	}

	var rtsp, igmp string
	for _, loc := range strings.Split(rec["ChannelURL"], "|") {
		loc = strings.TrimSpace(loc)
		switch {
		case rtsp == "" && strings.HasPrefix(loc, "rtsp"):
			rtsp = loc
		case igmp == "" && strings.HasPrefix(loc, "igmp"):
			igmp = loc
		}
	}
	if rtsp == "" {
		return Channel{}, "missing_rtsp"
	}

	ch := Channel{
		ID:       id,
		Name:     name,
		RTSP:     ep.RewriteRTSP(rtsp),
		Category: Categorize(name),
	}
	if igmp != "" {
		ch.IGMP = ep.RewriteIGMP(igmp)
	}
	return ch, ""
}
