// Package hls provides parsing utilities for HTTP Live Streaming playlists.
//
// The live player delegates actual segment playback to the native engine;
// these utilities exist to inspect discovered playlists, list their variants
// and upgrade a master playlist URL to its best rendition.
package hls

import (
	"bufio"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Variant is one rendition advertised by a master playlist.
type Variant struct {
	URI        string
	Bandwidth  int
	Resolution string
}

// Segment is a single media segment of a media playlist.
type Segment struct {
	URI      string
	Duration float64
}

// MediaPlaylist is the parsed form of a media (non-master) playlist.
type MediaPlaylist struct {
	Segments       []Segment
	TargetDuration float64
	Ended          bool
}

// TotalDuration returns the summed duration of all segments in seconds.
func (p *MediaPlaylist) TotalDuration() float64 {
	var total float64
	for _, s := range p.Segments {
		total += s.Duration
	}
	return total
}

// IsMaster reports whether a playlist body advertises renditions rather than segments.
func IsMaster(body string) bool {
	return strings.Contains(body, "#EXT-X-STREAM-INF")
}

// ParseMaster extracts the variant list from a master playlist body.
func ParseMaster(body string) ([]Variant, error) {
	if !strings.HasPrefix(strings.TrimSpace(body), "#EXTM3U") {
		return nil, fmt.Errorf("not an m3u8 playlist")
	}

	var variants []Variant
	var pending *Variant

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			v := Variant{}
			for _, attr := range splitAttributes(strings.TrimPrefix(line, "#EXT-X-STREAM-INF:")) {
				name, value, ok := strings.Cut(attr, "=")
				if !ok {
					continue
				}
				switch name {
				case "BANDWIDTH":
					v.Bandwidth, _ = strconv.Atoi(value)
				case "RESOLUTION":
					v.Resolution = value
				}
			}
			pending = &v
		case line == "" || strings.HasPrefix(line, "#"):
			// Unrelated tag or blank line.
		default:
			if pending != nil {
				pending.URI = line
				variants = append(variants, *pending)
				pending = nil
			}
		}
	}

	if len(variants) == 0 {
		return nil, fmt.Errorf("master playlist has no variants")
	}
	return variants, nil
}

// ParseMedia extracts segment URIs and durations from a media playlist body.
func ParseMedia(body string) (*MediaPlaylist, error) {
	if !strings.HasPrefix(strings.TrimSpace(body), "#EXTM3U") {
		return nil, fmt.Errorf("not an m3u8 playlist")
	}

	playlist := &MediaPlaylist{}
	var pendingDuration float64
	var havePending bool

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			playlist.TargetDuration, _ = strconv.ParseFloat(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:"), 64)
		case strings.HasPrefix(line, "#EXTINF:"):
			spec := strings.TrimPrefix(line, "#EXTINF:")
			if idx := strings.Index(spec, ","); idx >= 0 {
				spec = spec[:idx]
			}
			pendingDuration, _ = strconv.ParseFloat(spec, 64)
			havePending = true
		case line == "#EXT-X-ENDLIST":
			playlist.Ended = true
		case line == "" || strings.HasPrefix(line, "#"):
			// Unrelated tag or blank line.
		default:
			if havePending {
				playlist.Segments = append(playlist.Segments, Segment{URI: line, Duration: pendingDuration})
				havePending = false
			}
		}
	}

	return playlist, nil
}

// BestVariant returns the variant with the highest bandwidth.
func BestVariant(variants []Variant) (Variant, bool) {
	if len(variants) == 0 {
		return Variant{}, false
	}
	best := variants[0]
	for _, v := range variants[1:] {
		if v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best, true
}

// ResolveURL resolves a possibly-relative playlist URI against its base URL.
func ResolveURL(base, uri string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return uri
	}
	ref, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return baseURL.ResolveReference(ref).String()
}

// splitAttributes splits an attribute list on commas outside of quoted strings.
func splitAttributes(spec string) []string {
	var attrs []string
	var b strings.Builder
	inQuotes := false

	for _, r := range spec {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			attrs = append(attrs, strings.TrimSpace(b.String()))
			b.Reset()
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		attrs = append(attrs, strings.TrimSpace(b.String()))
	}
	return attrs
}
