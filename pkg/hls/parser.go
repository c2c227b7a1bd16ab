/*
 * stream-fetch is a project to resolve and download HLS video streams.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package hls

import (
	"bufio"
	"encoding/hex"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/lucasduport/stream-fetch/pkg/types"
)

// ErrNotM3U8 is returned when the input does not contain the #EXTM3U marker.
var ErrNotM3U8 = errors.New("not a valid M3U8 playlist: #EXTM3U absent")

// reKeyValue extracts KEY=value or KEY="value" attribute pairs from a tag line.
var reKeyValue = regexp.MustCompile(`([a-zA-Z0-9_-]+)=("[^"]*"|[^",]+)`)

const (
	tagHeader  = "#EXTM3U"
	tagKey     = "#EXT-X-KEY:"
	tagSegment = "#EXTINF:"
)

// Parse reads a media playlist and returns its encryption declaration (nil
// when the stream is clear) and the ordered segment list. Relative segment
// and key URIs are resolved against baseURL. The only hard failure is a
// missing #EXTM3U marker; a key tag without a URI attribute downgrades the
// stream to unencrypted rather than failing the parse.
func Parse(text, baseURL string) (*types.EncryptionInfo, []types.Segment, error) {
	if !strings.Contains(text, tagHeader) {
		return nil, nil, ErrNotM3U8
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var enc *types.EncryptionInfo
	var segments []types.Segment
	pendingSegment := false

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, tagKey):
			if enc == nil {
				enc = parseKeyTag(line, base)
			}
		case strings.HasPrefix(line, tagSegment):
			pendingSegment = true
		case strings.HasPrefix(line, "#"):
			// Other tags are not needed to assemble the stream
		default:
			if pendingSegment {
				segments = append(segments, types.Segment{
					Index: len(segments),
					URL:   resolveURL(base, line),
				})
				pendingSegment = false
			}
		}
	}

	return enc, segments, nil
}

// parseKeyTag interprets an #EXT-X-KEY line. A tag without URI is treated
// as unencrypted: some providers emit the tag with METHOD=NONE or strip
// the URI when content is in the clear.
func parseKeyTag(line string, base *url.URL) *types.EncryptionInfo {
	attrs := parseAttributes(strings.TrimPrefix(line, tagKey))

	uri, ok := attrs["URI"]
	if !ok || uri == "" {
		return nil
	}

	enc := &types.EncryptionInfo{
		Method: "AES-128",
		KeyURI: resolveURL(base, uri),
	}

	// IV=0x followed by exactly 32 hex characters; anything else means the
	// IV is derived per segment at decrypt time.
	if raw, ok := attrs["IV"]; ok {
		if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
			hexPart := raw[2:]
			if len(hexPart) == 32 {
				if iv, err := hex.DecodeString(hexPart); err == nil {
					enc.IV = iv
				}
			}
		}
	}

	return enc
}

// parseAttributes splits a tag's attribute list into a map, stripping the
// quotes from quoted values.
func parseAttributes(list string) map[string]string {
	attrs := make(map[string]string)
	for _, match := range reKeyValue.FindAllStringSubmatch(list, -1) {
		attrs[match[1]] = strings.Trim(match[2], `"`)
	}
	return attrs
}

// resolveURL makes ref absolute against the manifest's URL. Already-absolute
// references are returned untouched.
func resolveURL(base *url.URL, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if base == nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}
