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
	"testing"
	"time"
)

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.Wait != time.Second {
		t.Errorf("Wait = %v, want 1s", p.Wait)
	}
}

func TestAuthContextHeaders(t *testing.T) {
	t.Setenv("USER_AGENT", "")

	h := AuthContext{}.Headers()
	if h["User-Agent"] == "" {
		t.Error("empty auth context must still carry a User-Agent")
	}
	if _, ok := h["Cookie"]; ok {
		t.Error("blank Cookie header must be omitted")
	}
	if _, ok := h["Referer"]; ok {
		t.Error("blank Referer header must be omitted")
	}

	full := AuthContext{
		UserAgent: "agent/1.0",
		Cookie:    "token=1",
		Referer:   "https://page.example.com/",
		Origin:    "https://page.example.com",
	}.Headers()

	if full["User-Agent"] != "agent/1.0" {
		t.Errorf("User-Agent = %q", full["User-Agent"])
	}
	if full["Cookie"] != "token=1" || full["Referer"] != "https://page.example.com/" {
		t.Errorf("auth headers not passed through: %v", full)
	}
	if full["Origin"] != "https://page.example.com" {
		t.Errorf("Origin = %q", full["Origin"])
	}
}
