package playlist

import (
	"strings"
)

// Entry is one channel read back from an M3U playlist.
type Entry struct {
	TvgID string
	Name  string
	Logo  string
	Group string
	URL   string
}

// block is a run of source lines: either one complete entry (#EXTINF through
// the URL) or lines outside any entry.
type block struct {
	lines []string
	entry *Entry
}

func scan(content string) []block {
	var blocks []block
	var pending []string
	var current Entry
	inEntry := false

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			// An #EXTINF without a URL is kept as plain lines.
			if len(pending) > 0 {
				blocks = append(blocks, block{lines: pending})
			}
			pending = []string{raw}
			current = Entry{
				TvgID: attr(line, "tvg-id"),
				Logo:  attr(line, "tvg-logo"),
				Group: attr(line, "group-title"),
			}
			if idx := strings.LastIndex(line, ","); idx != -1 {
				current.Name = strings.TrimSpace(line[idx+1:])
			}
			inEntry = true
		case line != "" && !strings.HasPrefix(line, "#"):
			if !inEntry {
				if len(pending) > 0 {
					blocks = append(blocks, block{lines: pending})
				}
				pending = nil
				current = Entry{}
			}
			current.URL = line
			e := current
			blocks = append(blocks, block{lines: append(pending, raw), entry: &e})
			pending = nil
			inEntry = false
		default:
			pending = append(pending, raw)
		}
	}
	if len(pending) > 0 {
		blocks = append(blocks, block{lines: pending})
	}
	return blocks
}

// Parse reads the entries of an extended M3U playlist. Attributes that are
// missing stay empty; lines between #EXTINF and the URL are ignored.
func Parse(content string) []Entry {
	var entries []Entry
	for _, b := range scan(content) {
		if b.entry != nil {
			entries = append(entries, *b.entry)
		}
	}
	return entries
}

// WithoutIDs returns content minus the entries whose tvg-id is in ids, and
// the number of entries dropped. Everything else is kept byte for byte.
func WithoutIDs(content string, ids map[string]bool) (string, int) {
	blocks := scan(content)
	kept := make([]string, 0, len(blocks))
	dropped := 0
	for _, b := range blocks {
		if b.entry != nil && b.entry.TvgID != "" && ids[b.entry.TvgID] {
			dropped++
			continue
		}
		kept = append(kept, b.lines...)
	}
	if dropped == 0 {
		return content, 0
	}
	return strings.Join(kept, "\n"), dropped
}

func attr(line, name string) string {
	key := name + `="`
	idx := strings.Index(line, key)
	if idx == -1 {
		return ""
	}
	rest := line[idx+len(key):]
	end := strings.IndexByte(rest, '"')
	if end == -1 {
		return ""
	}
	return rest[:end]
}
