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

package types

import "strings"

// Manifest holds a fetched HLS playlist together with its source URL.
// It is immutable once fetched; relative segment and key URIs are resolved
// against the directory containing the manifest.
type Manifest struct {
	Raw string // Raw playlist text, starting with #EXTM3U
	URL string // Absolute URL the playlist was fetched from
}

// BaseURL returns the manifest's directory: the source URL up to and
// including the last '/'.
func (m *Manifest) BaseURL() string {
	idx := strings.LastIndex(m.URL, "/")
	if idx < 0 {
		return m.URL
	}
	return m.URL[:idx+1]
}

// EncryptionInfo describes the AES-128 encryption declared by an
// #EXT-X-KEY tag. It is created once per parse and shared read-only
// across all segment operations.
type EncryptionInfo struct {
	Method string // Always "AES-128"
	KeyURI string // Absolute URL of the key material
	IV     []byte // Explicit 16-byte IV, or nil to derive per segment
}

// Segment is one media chunk referenced by the playlist. The index is
// zero-based in manifest order, which is both playback order and the
// order output bytes are written.
type Segment struct {
	Index int    // Position in the playlist, starting at 0
	URL   string // Absolute URL of the segment
}

// ParseResult is the structured output of parsing a manifest.
type ParseResult struct {
	Encryption *EncryptionInfo // nil when the stream is not encrypted
	Segments   []Segment       // In manifest order
}

// Total returns the number of segments in the playlist.
func (r ParseResult) Total() int {
	return len(r.Segments)
}

// SessionState tracks the lifecycle of one download session.
type SessionState int

const (
	// StatePending is the state before the first segment is requested
	StatePending SessionState = iota
	// StateInProgress is the state while segments are being downloaded
	StateInProgress
	// StateCompleted means the loop finished and the success threshold was met
	StateCompleted
	// StateAborted means the failure threshold was exceeded mid-run
	StateAborted
	// StateIncomplete means the loop finished below the success threshold
	StateIncomplete
)

// String returns a readable name for the session state.
func (s SessionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// Result reports the outcome of one download session. Bytes is the amount
// of output actually written, which can be partial for aborted sessions.
type Result struct {
	SessionID string       // Unique ID assigned when the session started
	State     SessionState // Terminal state of the session
	Encrypted bool         // Whether segments were decrypted
	Total     int          // Number of segments in the manifest
	Succeeded int          // Segments fetched (and decrypted) successfully
	Failed    int          // Segments that exhausted their retries
	Bytes     int64        // Bytes appended to the output sink
}
