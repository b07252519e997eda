// SPDX-License-Identifier: MIT

package epg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// maxExtraSize bounds extra guide documents fetched from operator URLs.
const maxExtraSize = 50 << 20

// Decode parses an XMLTV document. Entity expansion is disabled.
func Decode(r io.Reader) (*TV, error) {
	var doc TV
	dec := xml.NewDecoder(io.LimitReader(r, maxExtraSize))
	dec.Strict = true
	dec.Entity = make(map[string]string)

	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode xmltv: %w", err)
	}
	doc.Channels = keepChannels(doc.Channels)
	doc.Programs = keepProgrammes(doc.Programs)
	return &doc, nil
}

func keepChannels(in []Channel) []Channel {
	out := in[:0]
	for _, ch := range in {
		if ch.ID == "" {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func keepProgrammes(in []Programme) []Programme {
	out := in[:0]
	for _, p := range in {
		if p.Channel == "" || p.Start == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
