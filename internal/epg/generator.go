// SPDX-License-Identifier: MIT

// Package epg renders the program guide as XMLTV.
package epg

import (
	"encoding/xml"
	"io"
	"strconv"
	"time"

	"github.com/ManuGH/iptvproxy/internal/mapping"
	"github.com/ManuGH/iptvproxy/internal/portal"
)

const generatorName = "iptvproxy"

// guideZone is the fixed offset the portal schedules are published in.
var guideZone = time.FixedZone("CST", 8*60*60)

type TV struct {
	XMLName   xml.Name    `xml:"tv"`
	Generator string      `xml:"generator-info-name,attr,omitempty"`
	Source    string      `xml:"source-info-name,attr,omitempty"`
	Channels  []Channel   `xml:"channel"`
	Programs  []Programme `xml:"programme"`
}

type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
	Icon        *Icon    `xml:"icon,omitempty"`
}

type Icon struct {
	Src string `xml:"src,attr"`
}

type Programme struct {
	Start    string  `xml:"start,attr"`
	Stop     string  `xml:"stop,attr"`
	Channel  string  `xml:"channel,attr"`
	Titles   []Title `xml:"title"`
	SubTitle []Title `xml:"sub-title,omitempty"`
	Desc     []Title `xml:"desc,omitempty"`
}

// Title is a possibly language-tagged text element.
type Title struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// FormatTime renders epoch milliseconds in XMLTV form at +0800.
func FormatTime(ms int64) string {
	return time.UnixMilli(ms).In(guideZone).Format("20060102150405") + " +0800"
}

// Build renders the catalog and its guide. A channel without programmes
// borrows the programmes of the channel it is mapped to, listed under its
// own id. Channels and programmes of extra are appended.
func Build(channels []portal.Channel, table mapping.Table, extra *TV) *TV {
	tv := &TV{Generator: generatorName, Source: generatorName}

	byName := make(map[string]int, len(channels))
	for i, c := range channels {
		if _, dup := byName[mapping.Key(c.Name)]; !dup {
			byName[mapping.Key(c.Name)] = i
		}
		tv.Channels = append(tv.Channels, Channel{
			ID:          strconv.FormatUint(c.ID, 10),
			DisplayName: []string{c.Name},
		})
	}
	if extra != nil {
		tv.Channels = append(tv.Channels, extra.Channels...)
	}

	for _, c := range channels {
		programs := c.Programs
		if len(programs) == 0 {
			if to, ok := table.Target(c.Name); ok {
				if i, found := byName[to]; found {
					programs = channels[i].Programs
				}
			}
		}
		id := strconv.FormatUint(c.ID, 10)
		for _, p := range programs {
			tv.Programs = append(tv.Programs, programme(id, p))
		}
	}
	if extra != nil {
		tv.Programs = append(tv.Programs, extra.Programs...)
	}
	return tv
}

func programme(channelID string, p portal.Program) Programme {
	out := Programme{
		Start:   FormatTime(p.Start),
		Stop:    FormatTime(p.Stop),
		Channel: channelID,
		Titles:  []Title{{Lang: "chi", Value: p.Title}},
	}
	if p.Desc != "" {
		out.Desc = []Title{{Value: p.Desc}}
	}
	return out
}

// Write encodes tv with an XML declaration.
func Write(w io.Writer, tv *TV) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
