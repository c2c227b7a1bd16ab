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

// Package resolver defines the contract for turning an arbitrary content
// page URL into a manifest URL. The scraping machinery that implements it
// for specific providers lives outside this module; the downloader only
// depends on the capability and never assumes resolution succeeds.
package resolver

import (
	"context"
	"net/url"
	"path"
	"strings"
)

// URLResolver locates the playlist behind a content page, best effort.
// ok is false when no manifest URL could be found; that is not an error.
type URLResolver interface {
	Resolve(ctx context.Context, pageURL string) (manifestURL string, ok bool, err error)
}

// DirectResolver recognizes URLs that already point at a playlist, so
// callers can hand either a page URL or a raw manifest URL to the same
// entry point.
type DirectResolver struct{}

// Resolve returns pageURL unchanged when it is an http(s) URL whose path
// ends in .m3u8 or .m3u.
func (DirectResolver) Resolve(_ context.Context, pageURL string) (string, bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", false, nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false, nil
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if ext != ".m3u8" && ext != ".m3u" {
		return "", false, nil
	}
	return pageURL, true, nil
}

// Chain tries each resolver in order and returns the first hit.
type Chain []URLResolver

// Resolve walks the chain. Resolver errors stop the walk; a miss moves on
// to the next resolver.
func (c Chain) Resolve(ctx context.Context, pageURL string) (string, bool, error) {
	for _, r := range c {
		manifestURL, ok, err := r.Resolve(ctx, pageURL)
		if err != nil {
			return "", false, err
		}
		if ok {
			return manifestURL, true, nil
		}
	}
	return "", false, nil
}
