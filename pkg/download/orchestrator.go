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

// Package download drives a full HLS download session: it resolves the
// decryption key once, walks the segment list in manifest order, fetches
// and decrypts each segment, and appends the results to the output sink
// while enforcing the session's failure-rate policy.
package download

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lucasduport/stream-fetch/pkg/hls"
	"github.com/lucasduport/stream-fetch/pkg/types"
	"github.com/lucasduport/stream-fetch/pkg/utils"
)

// KeyResolver fetches raw key material from a key URI.
type KeyResolver interface {
	FetchKey(ctx context.Context, keyURI string) ([]byte, error)
}

// SegmentFetcher retrieves one segment's raw bytes with bounded retries.
type SegmentFetcher interface {
	FetchSegment(ctx context.Context, segmentURL string) ([]byte, error)
}

// Config tunes one orchestrator instance. The pacing limiter is owned by
// the orchestrator rather than being ambient process state.
type Config struct {
	Workers   int           // Concurrent segment workers; <=1 means sequential
	PaceEvery int           // Pause after this many segments; <=0 disables pacing
	PaceDelay time.Duration // Length of the pacing pause
}

// DefaultConfig matches the provider-tested behavior: sequential fetching
// with a half second pause after every tenth segment to stay under the
// provider's rate limits.
func DefaultConfig() Config {
	return Config{
		Workers:   1,
		PaceEvery: 10,
		PaceDelay: 500 * time.Millisecond,
	}
}

// Orchestrator runs download sessions. Safe to reuse across sessions: all
// per-run state lives in the session value.
type Orchestrator struct {
	keys     KeyResolver
	segments SegmentFetcher
	cfg      Config
}

// New builds an orchestrator from its collaborators.
func New(keys KeyResolver, segments SegmentFetcher, cfg Config) *Orchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Orchestrator{
		keys:     keys,
		segments: segments,
		cfg:      cfg,
	}
}

// Run downloads every segment of the parsed manifest, in order, into out.
// Per-segment failures are absorbed into counters; the returned error is
// always session-level: key retrieval failure, TooManyFailuresError,
// IncompleteDownloadError, an output write error, or cancellation.
// The returned Result is valid in all cases and describes how far the
// session got.
func (o *Orchestrator) Run(ctx context.Context, parsed types.ParseResult, out io.Writer) (types.Result, error) {
	sess := newSession(parsed.Total(), out)
	encrypted := parsed.Encryption != nil

	utils.InfoLog("Session %s: %d segments, encrypted=%v, workers=%d",
		sess.id, sess.total, encrypted, o.cfg.Workers)

	if sess.total == 0 {
		sess.state = types.StateCompleted
		return sess.result(encrypted), nil
	}

	// The key is fetched exactly once and shared read-only by every
	// segment. Without it no segment can be decrypted, so failure here
	// aborts the whole session.
	var key []byte
	if encrypted {
		var err error
		key, err = o.keys.FetchKey(ctx, parsed.Encryption.KeyURI)
		if err != nil {
			sess.state = types.StateAborted
			return sess.result(encrypted), err
		}
	}

	sess.state = types.StateInProgress

	var err error
	if o.cfg.Workers > 1 {
		err = o.runParallel(ctx, sess, parsed, key)
	} else {
		err = o.runSequential(ctx, sess, parsed, key)
	}
	if err != nil {
		return sess.result(encrypted), err
	}

	succeeded, failed := sess.counts()
	if !sess.accepted() {
		sess.state = types.StateIncomplete
		utils.ErrorLog("Session %s: incomplete, %d of %d segments succeeded", sess.id, succeeded, sess.total)
		return sess.result(encrypted), &IncompleteDownloadError{Succeeded: succeeded, Total: sess.total}
	}

	sess.state = types.StateCompleted
	utils.InfoLog("Session %s: completed, %d succeeded, %d failed", sess.id, succeeded, failed)
	return sess.result(encrypted), nil
}

// runSequential is the default one-segment-at-a-time loop. Output order
// is trivially the manifest order.
func (o *Orchestrator) runSequential(ctx context.Context, sess *session, parsed types.ParseResult, key []byte) error {
	for _, seg := range parsed.Segments {
		if err := ctx.Err(); err != nil {
			sess.state = types.StateAborted
			return fmt.Errorf("session %s cancelled before segment %d: %w", sess.id, seg.Index, err)
		}

		data, err := o.processSegment(ctx, seg, parsed.Encryption, key)
		if err != nil {
			utils.WarnLog("Session %s: segment %d failed: %v", sess.id, seg.Index, err)
			if sess.recordFailure() {
				sess.state = types.StateAborted
				_, failed := sess.counts()
				return &TooManyFailuresError{Failed: failed, Total: sess.total}
			}
		} else {
			if werr := sess.writeSegment(data); werr != nil {
				sess.state = types.StateAborted
				return fmt.Errorf("writing segment %d: %w", seg.Index, werr)
			}
			utils.DebugLog("Session %s: segment %d/%d written (%d bytes)",
				sess.id, seg.Index+1, sess.total, len(data))
		}

		o.pause(ctx, seg.Index)
	}
	return nil
}

// processSegment fetches one segment and, for encrypted streams, decrypts
// it with the session key and the segment's IV.
func (o *Orchestrator) processSegment(ctx context.Context, seg types.Segment, enc *types.EncryptionInfo, key []byte) ([]byte, error) {
	data, err := o.segments.FetchSegment(ctx, seg.URL)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return data, nil
	}
	return hls.DecryptSegment(data, key, hls.IVForSegment(enc, seg.Index))
}

// pause sleeps after every PaceEvery-th segment. Cancellation cuts the
// pause short.
func (o *Orchestrator) pause(ctx context.Context, index int) {
	if o.cfg.PaceDelay <= 0 || o.cfg.PaceEvery <= 0 {
		return
	}
	if (index+1)%o.cfg.PaceEvery != 0 {
		return
	}

	t := time.NewTimer(o.cfg.PaceDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
