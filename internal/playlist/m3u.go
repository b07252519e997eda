// SPDX-License-Identifier: MIT
package playlist

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ManuGH/iptvproxy/internal/mapping"
	"github.com/ManuGH/iptvproxy/internal/portal"
)

const catchupPattern = "?playseek=${(b)yyyyMMddHHmmss}-${(e)yyyyMMddHHmmss}"

// Item is one playlist entry.
type Item struct {
	TvgID         string
	Name          string
	Group         string
	Logo          string
	CatchupSource string // empty: no catch-up attributes
	URL           string
}

// Options control how channels become playlist entries.
type Options struct {
	// PublicBase is scheme://host of this proxy, used for logo links.
	PublicBase string
	// UDPProxy prefers the multicast locator when a channel has one.
	UDPProxy bool
	Mapping  mapping.Table
}

// Build turns a catalog into playlist items. Logos of mapped channels point
// at the channel they are mapped to.
func Build(channels []portal.Channel, opts Options) []Item {
	byName := make(map[string]uint64, len(channels))
	for _, c := range channels {
		if _, dup := byName[mapping.Key(c.Name)]; !dup {
			byName[mapping.Key(c.Name)] = c.ID
		}
	}

	items := make([]Item, 0, len(channels))
	for _, c := range channels {
		id := strconv.FormatUint(c.ID, 10)
		logoID := c.ID
		if to, ok := opts.Mapping.Target(c.Name); ok {
			if mapped, found := byName[to]; found {
				logoID = mapped
			}
		}

		it := Item{
			TvgID: id,
			Name:  c.Name,
			Group: c.Category,
			Logo:  fmt.Sprintf("%s/logo/%d.png", strings.TrimRight(opts.PublicBase, "/"), logoID),
			URL:   c.RTSP,
		}
		if c.HasMulticast() {
			it.CatchupSource = c.RTSP + catchupPattern
			if opts.UDPProxy {
				it.URL = c.IGMP
			}
		}
		items = append(items, it)
	}
	return items
}

// WriteM3U writes an extended M3U playlist. extra is appended verbatim
// after the generated entries, without its own #EXTM3U header.
func WriteM3U(w io.Writer, items []Item, extra string) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, it := range items {
		catchup := " "
		if it.CatchupSource != "" {
			catchup = fmt.Sprintf(` catchup="append" catchup-source="%s" `, it.CatchupSource)
		}
		fmt.Fprintf(buf,
			`#EXTINF:-1 tvg-id="%s" tvg-name="%s" tvg-chno="%s"%stvg-logo="%s" group-title="%s",%s`+"\n",
			it.TvgID, it.Name, it.TvgID, catchup, it.Logo, it.Group, it.Name,
		)
		buf.WriteString(it.URL + "\n")
	}
	if body := StripHeader(extra); body != "" {
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteByte('\n')
		}
	}
	_, err := io.Copy(w, buf)
	return err
}

// StripHeader removes a leading #EXTM3U line.
func StripHeader(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(content, "#EXTM3U") {
		return strings.TrimLeft(content, "\r\n")
	}
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		return content[i+1:]
	}
	return ""
}
