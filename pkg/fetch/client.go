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

// Package fetch is the HTTP layer of the downloader: it retrieves
// manifests, decryption keys and media segments from the provider's CDN,
// carrying the auth headers supplied by the external resolver.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lucasduport/stream-fetch/pkg/config"
	"github.com/lucasduport/stream-fetch/pkg/hls"
	"github.com/lucasduport/stream-fetch/pkg/types"
	"github.com/lucasduport/stream-fetch/pkg/utils"
)

// KeyLengthError reports key material that cannot possibly be an AES-128
// key. Failing here beats silently producing garbage plaintext.
type KeyLengthError struct {
	KeyURI string
	Got    int
}

func (e *KeyLengthError) Error() string {
	return fmt.Sprintf("key at %s is %d bytes, want 16 for AES-128", e.KeyURI, e.Got)
}

// Client performs all upstream HTTP requests for one download session.
// Manifest and key requests go through a plain client; segment requests
// go through a second client configured with the bounded retry policy.
type Client struct {
	plain    *resty.Client
	segments *resty.Client
	retry    config.RetryPolicy
}

// NewClient builds a Client from the session's auth context, retry policy
// and per-request timeout.
func NewClient(auth config.AuthContext, retry config.RetryPolicy, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}

	headers := auth.Headers()

	plain := resty.New().
		SetTimeout(timeout).
		SetHeaders(headers)

	segments := resty.New().
		SetTimeout(timeout).
		SetHeaders(headers).
		SetRetryCount(retry.MaxAttempts - 1).
		SetRetryWaitTime(retry.Wait).
		SetRetryMaxWaitTime(retry.Wait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || !r.IsSuccess()
		})

	return &Client{
		plain:    plain,
		segments: segments,
		retry:    retry,
	}
}

// FetchManifest retrieves the playlist text. Transport failures and
// non-success statuses are fatal: nothing can proceed without a manifest.
func (c *Client) FetchManifest(ctx context.Context, manifestURL string) (*types.Manifest, error) {
	resp, err := c.plain.R().SetContext(ctx).Get(manifestURL)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest %s: %w", manifestURL, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetching manifest %s: unexpected status %s", manifestURL, resp.Status())
	}

	utils.DebugLog("Fetched manifest %s (%d bytes)", manifestURL, len(resp.Body()))

	return &types.Manifest{
		Raw: string(resp.Body()),
		URL: manifestURL,
	}, nil
}

// ResolveStream fetches the manifest and parses it into the structured
// result the orchestrator consumes.
func (c *Client) ResolveStream(ctx context.Context, manifestURL string) (*types.Manifest, types.ParseResult, error) {
	manifest, err := c.FetchManifest(ctx, manifestURL)
	if err != nil {
		return nil, types.ParseResult{}, err
	}

	enc, segs, err := hls.Parse(manifest.Raw, manifest.URL)
	if err != nil {
		return manifest, types.ParseResult{}, err
	}

	return manifest, types.ParseResult{Encryption: enc, Segments: segs}, nil
}

// FetchKey retrieves the raw AES-128 key material. Fetched at most once
// per session and reused for every segment. Fatal on transport or status
// failure; a body that is not exactly 16 bytes is a distinct KeyLengthError.
func (c *Client) FetchKey(ctx context.Context, keyURI string) ([]byte, error) {
	resp, err := c.plain.R().SetContext(ctx).Get(keyURI)
	if err != nil {
		return nil, fmt.Errorf("fetching decryption key %s: %w", keyURI, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetching decryption key %s: unexpected status %s", keyURI, resp.Status())
	}

	key := resp.Body()
	if len(key) != 16 {
		return nil, &KeyLengthError{KeyURI: keyURI, Got: len(key)}
	}

	if utils.IsDebugLogEnabled() {
		utils.DebugLog("Key material:\n%s", utils.HexDump(key, 16))
	}

	return key, nil
}
