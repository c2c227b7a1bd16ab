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

import "fmt"

// TooManyFailuresError aborts a session whose cumulative failures exceed
// 10% of the total segment count. The output is left partially written.
type TooManyFailuresError struct {
	Failed int
	Total  int
}

func (e *TooManyFailuresError) Error() string {
	return fmt.Sprintf("aborting download: failed %d of %d segments", e.Failed, e.Total)
}

// IncompleteDownloadError rejects a session whose loop finished but whose
// success rate stayed below 80%. No mid-loop failure triggered it; the
// output is simply not complete enough to be playable.
type IncompleteDownloadError struct {
	Succeeded int
	Total     int
}

func (e *IncompleteDownloadError) Error() string {
	return fmt.Sprintf("incomplete download: only %d of %d segments succeeded", e.Succeeded, e.Total)
}
