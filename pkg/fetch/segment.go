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

package fetch

import (
	"context"
	"fmt"

	"github.com/lucasduport/stream-fetch/pkg/utils"
)

// SegmentFetchError reports a segment that exhausted its retry budget.
// The orchestrator records it as a failed segment and moves on; it is
// never raised to the caller on its own.
type SegmentFetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *SegmentFetchError) Error() string {
	return fmt.Sprintf("segment %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *SegmentFetchError) Unwrap() error {
	return e.Err
}

// FetchSegment retrieves one segment's raw bytes. The request carries a
// full-range header plus a Referer derived from the segment URL's own
// origin: some CDNs refuse requests referred from the course page itself.
// Retries are bounded by the injected policy; the last failure is wrapped
// in a SegmentFetchError.
func (c *Client) FetchSegment(ctx context.Context, segmentURL string) ([]byte, error) {
	req := c.segments.R().
		SetContext(ctx).
		SetHeader("Range", "bytes=0-")

	if origin := utils.OriginOf(segmentURL); origin != "" {
		req.SetHeader("Referer", origin)
	}

	resp, err := req.Get(segmentURL)
	if err != nil {
		return nil, &SegmentFetchError{URL: segmentURL, Attempts: c.retry.MaxAttempts, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &SegmentFetchError{
			URL:      segmentURL,
			Attempts: c.retry.MaxAttempts,
			Err:      fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}

	return resp.Body(), nil
}
