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
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/lucasduport/stream-fetch/pkg/types"
)

const (
	// failureAbortRatio aborts the session once failures exceed this share
	// of the total segment count.
	failureAbortRatio = 0.10
	// acceptRatio is the minimum share of succeeded segments for a finished
	// session to be accepted.
	acceptRatio = 0.80
)

// session is the mutable state of one download run. It is created per
// invocation of Run and discarded when the run concludes. The counters
// and the output sink are the only shared state when segments are fetched
// concurrently, so every mutation goes through the lock.
type session struct {
	id    string
	total int
	state types.SessionState
	out   io.Writer

	lock      sync.Mutex
	succeeded int
	failed    int
	bytes     int64
}

func newSession(total int, out io.Writer) *session {
	return &session{
		id:    uuid.New().String(),
		total: total,
		state: types.StatePending,
		out:   out,
	}
}

// writeSegment appends one segment's bytes to the output sink, in strict
// manifest order, and counts the success.
func (s *session) writeSegment(data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.out.Write(data); err != nil {
		return err
	}
	s.succeeded++
	s.bytes += int64(len(data))
	return nil
}

// recordFailure counts one failed segment and reports whether the failure
// threshold has now been exceeded, in which case the caller must abort
// immediately.
func (s *session) recordFailure() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.failed++
	return float64(s.failed) > failureAbortRatio*float64(s.total)
}

// counts returns a consistent snapshot of the progress counters.
func (s *session) counts() (succeeded, failed int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.succeeded, s.failed
}

// accepted reports whether a session whose loop finished met the
// completeness threshold.
func (s *session) accepted() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return float64(s.succeeded) >= acceptRatio*float64(s.total)
}

// result freezes the session into the caller-facing outcome value.
func (s *session) result(encrypted bool) types.Result {
	s.lock.Lock()
	defer s.lock.Unlock()

	return types.Result{
		SessionID: s.id,
		State:     s.state,
		Encrypted: encrypted,
		Total:     s.total,
		Succeeded: s.succeeded,
		Failed:    s.failed,
		Bytes:     s.bytes,
	}
}
