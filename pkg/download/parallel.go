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

package download

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lucasduport/stream-fetch/pkg/types"
	"github.com/lucasduport/stream-fetch/pkg/utils"
)

// segmentResult carries one segment's outcome from a worker to the
// collector. data is nil when err is set.
type segmentResult struct {
	index int
	data  []byte
	err   error
}

// runParallel fetches and decrypts segments with a bounded worker pool.
// The key is immutable and shared read-only across workers. Output keeps
// the ordered-write barrier: segment i is fully appended before segment
// i+1, whatever order the fetches complete in. Failures are counted as
// results arrive so the abort threshold still fires as soon as it is
// crossed.
func (o *Orchestrator) runParallel(parent context.Context, sess *session, parsed types.ParseResult, key []byte) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobs := make(chan types.Segment)
	results := make(chan segmentResult, o.cfg.Workers)

	workers := new(errgroup.Group)
	for i := 0; i < o.cfg.Workers; i++ {
		workers.Go(func() error {
			for seg := range jobs {
				data, err := o.processSegment(ctx, seg, parsed.Encryption, key)
				results <- segmentResult{index: seg.Index, data: data, err: err}
			}
			return nil
		})
	}

	// Dispatch in manifest order; pacing applies to dispatch so the pool
	// still backs off after every tenth segment.
	go func() {
		defer close(jobs)
		for _, seg := range parsed.Segments {
			select {
			case jobs <- seg:
			case <-ctx.Done():
				return
			}
			o.pause(ctx, seg.Index)
		}
	}()

	go func() {
		workers.Wait() // workers never return errors; failures flow through results
		close(results)
	}()

	// Collector: counts outcomes as they arrive and flushes completed
	// segments to the sink strictly in index order. After a fatal error
	// it keeps draining so the workers can exit.
	pending := make(map[int]segmentResult, o.cfg.Workers)
	next := 0
	var fatal error

	for res := range results {
		if fatal != nil {
			continue
		}

		if res.err != nil {
			if perr := parent.Err(); perr != nil {
				sess.state = types.StateAborted
				fatal = fmt.Errorf("session %s cancelled at segment %d: %w", sess.id, res.index, perr)
				cancel()
				continue
			}
			utils.WarnLog("Session %s: segment %d failed: %v", sess.id, res.index, res.err)
			if sess.recordFailure() {
				sess.state = types.StateAborted
				_, failed := sess.counts()
				fatal = &TooManyFailuresError{Failed: failed, Total: sess.total}
				cancel()
				continue
			}
		}

		pending[res.index] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if r.err == nil {
				if werr := sess.writeSegment(r.data); werr != nil {
					sess.state = types.StateAborted
					fatal = fmt.Errorf("writing segment %d: %w", next, werr)
					cancel()
					break
				}
			}
			next++
		}
	}

	if fatal != nil {
		return fatal
	}
	if err := parent.Err(); err != nil {
		sess.state = types.StateAborted
		return fmt.Errorf("session %s cancelled: %w", sess.id, err)
	}
	return nil
}
