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

package config

import (
	"time"

	"github.com/lucasduport/stream-fetch/pkg/utils"
)

// AuthContext carries the headers supplied by the external resolver that
// located the manifest. The same headers are sent uniformly on manifest,
// key and segment requests.
type AuthContext struct {
	UserAgent string // User-Agent header; defaulted when empty
	Cookie    string // Cookie header, verbatim
	Referer   string // Referer header for manifest and key requests
	Origin    string // Origin header, when the provider checks it
}

// Headers returns the header set for upstream requests. Empty values are
// omitted so resty does not send blank headers.
func (a AuthContext) Headers() map[string]string {
	h := make(map[string]string)

	ua := a.UserAgent
	if ua == "" {
		ua = utils.GetStreamUserAgent()
	}
	h["User-Agent"] = ua
	h["Accept"] = "*/*"

	if a.Cookie != "" {
		h["Cookie"] = a.Cookie
	}
	if a.Referer != "" {
		h["Referer"] = a.Referer
	}
	if a.Origin != "" {
		h["Origin"] = a.Origin
	}
	return h
}

// RetryPolicy bounds segment fetch retries. It is injected into the
// fetcher so retry behavior is testable without real delays.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts, including the first
	Wait        time.Duration // Fixed wait between attempts
}

// DefaultRetryPolicy matches the provider-tested behavior: three attempts
// with a one second pause between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Wait:        time.Second,
	}
}

// DownloadConfig is the full runtime configuration of one download run.
type DownloadConfig struct {
	ManifestURL string        // Resolved, already-authenticated playlist URL
	OutputPath  string        // Where the assembled stream is written
	Workers     int           // Concurrent segment workers; 1 means sequential
	Timeout     time.Duration // Overall session deadline; 0 disables it
	HTTPTimeout time.Duration // Per-request timeout
	Auth        AuthContext   // Headers for all upstream requests
	Retry       RetryPolicy   // Segment retry policy
}

// DefaultHTTPTimeout bounds a single manifest, key or segment request.
const DefaultHTTPTimeout = 60 * time.Second
