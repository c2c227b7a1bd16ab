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
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

const testBaseURL = "https://cdn.example.com/course/video/playlist.m3u8"

func TestParseRejectsNonPlaylist(t *testing.T) {
	_, _, err := Parse("<html>not a playlist</html>", testBaseURL)
	if !errors.Is(err, ErrNotM3U8) {
		t.Fatalf("expected ErrNotM3U8, got %v", err)
	}
}

func TestParseSegmentOrdering(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&sb, "#EXTINF:9.6,\nseg-%d.ts\n", i)
	}
	sb.WriteString("#EXT-X-ENDLIST\n")

	enc, segments, err := Parse(sb.String(), testBaseURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc != nil {
		t.Fatalf("expected no encryption, got %+v", enc)
	}
	if len(segments) != 25 {
		t.Fatalf("expected 25 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
		want := fmt.Sprintf("https://cdn.example.com/course/video/seg-%d.ts", i)
		if seg.URL != want {
			t.Errorf("segment %d URL = %q, want %q", i, seg.URL, want)
		}
	}
}

func TestParseAbsoluteSegmentURLs(t *testing.T) {
	text := "#EXTM3U\n" +
		"#EXTINF:10,\nhttps://other-cdn.example.net/a.ts\n" +
		"#EXTINF:10,\n/rooted/b.ts\n"

	_, segments, err := Parse(text, testBaseURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].URL != "https://other-cdn.example.net/a.ts" {
		t.Errorf("absolute URL rewritten: %q", segments[0].URL)
	}
	if segments[1].URL != "https://cdn.example.com/rooted/b.ts" {
		t.Errorf("rooted URL = %q", segments[1].URL)
	}
}

func TestParseKeyTag(t *testing.T) {
	tests := []struct {
		name    string
		keyLine string
		wantEnc bool
		wantURI string
		wantIV  []byte
	}{
		{
			name:    "relative key URI, no IV",
			keyLine: `#EXT-X-KEY:METHOD=AES-128,URI="key.bin"`,
			wantEnc: true,
			wantURI: "https://cdn.example.com/course/video/key.bin",
		},
		{
			name:    "absolute key URI",
			keyLine: `#EXT-X-KEY:METHOD=AES-128,URI="https://keys.example.com/k/42"`,
			wantEnc: true,
			wantURI: "https://keys.example.com/k/42",
		},
		{
			name:    "explicit 32-hex IV",
			keyLine: `#EXT-X-KEY:METHOD=AES-128,URI="key.bin",IV=0x000102030405060708090a0b0c0d0e0f`,
			wantEnc: true,
			wantURI: "https://cdn.example.com/course/video/key.bin",
			wantIV:  []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		},
		{
			name:    "IV too short is ignored",
			keyLine: `#EXT-X-KEY:METHOD=AES-128,URI="key.bin",IV=0xdeadbeef`,
			wantEnc: true,
			wantURI: "https://cdn.example.com/course/video/key.bin",
		},
		{
			name:    "IV without 0x prefix is ignored",
			keyLine: `#EXT-X-KEY:METHOD=AES-128,URI="key.bin",IV=000102030405060708090a0b0c0d0e0f`,
			wantEnc: true,
			wantURI: "https://cdn.example.com/course/video/key.bin",
		},
		{
			name:    "key tag without URI means unencrypted",
			keyLine: `#EXT-X-KEY:METHOD=NONE`,
			wantEnc: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "#EXTM3U\n" + tt.keyLine + "\n#EXTINF:10,\nseg-0.ts\n"

			enc, segments, err := Parse(text, testBaseURL)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(segments) != 1 {
				t.Fatalf("expected 1 segment, got %d", len(segments))
			}

			if !tt.wantEnc {
				if enc != nil {
					t.Fatalf("expected nil encryption, got %+v", enc)
				}
				return
			}
			if enc == nil {
				t.Fatal("expected encryption info, got nil")
			}
			if enc.Method != "AES-128" {
				t.Errorf("method = %q", enc.Method)
			}
			if enc.KeyURI != tt.wantURI {
				t.Errorf("key URI = %q, want %q", enc.KeyURI, tt.wantURI)
			}
			if tt.wantIV == nil {
				if enc.IV != nil {
					t.Errorf("expected derived IV, got explicit %x", enc.IV)
				}
			} else if !bytes.Equal(enc.IV, tt.wantIV) {
				t.Errorf("IV = %x, want %x", enc.IV, tt.wantIV)
			}
		})
	}
}

func TestParseSkipsUnrelatedTags(t *testing.T) {
	text := "#EXTM3U\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXTINF:4.5,intro\n" +
		"a.ts\n" +
		"#EXT-X-DISCONTINUITY\n" +
		"#EXTINF:4.5,body\n" +
		"b.ts\n"

	_, segments, err := Parse(text, testBaseURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if !strings.HasSuffix(segments[0].URL, "/a.ts") || !strings.HasSuffix(segments[1].URL, "/b.ts") {
		t.Errorf("unexpected segment URLs: %q, %q", segments[0].URL, segments[1].URL)
	}
}
