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

package hls

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"testing"

	"github.com/lucasduport/stream-fetch/pkg/types"
)

// encryptForTest applies PKCS7 padding and AES-128-CBC, the inverse of
// DecryptSegment.
func encryptForTest(t *testing.T, plaintext, key, iv []byte) []byte {
	t.Helper()

	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+pad)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(pad)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("creating cipher: %v", err)
	}
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

func TestIVForSegmentDerived(t *testing.T) {
	tests := []struct {
		index int
		want  []byte
	}{
		{0, make([]byte, 16)},
		{1, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}},
		{255, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 255}},
		{256, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0}},
	}

	for _, tt := range tests {
		got := IVForSegment(nil, tt.index)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("IVForSegment(nil, %d) = %x, want %x", tt.index, got, tt.want)
		}
	}
}

func TestIVForSegmentExplicit(t *testing.T) {
	explicit := []byte{9, 9, 9, 9, 9, 9, 9, 9, 8, 8, 8, 8, 8, 8, 8, 8}
	enc := &types.EncryptionInfo{Method: "AES-128", IV: explicit}

	// The explicit IV applies to every segment, never the index derivation.
	for _, index := range []int{0, 1, 7, 500} {
		got := IVForSegment(enc, index)
		if !bytes.Equal(got, explicit) {
			t.Errorf("IVForSegment(explicit, %d) = %x, want %x", index, got, explicit)
		}
	}

	// The returned slice must be a copy: mutating it cannot corrupt the
	// shared EncryptionInfo.
	iv := IVForSegment(enc, 0)
	iv[0] = 0xff
	if enc.IV[0] == 0xff {
		t.Error("IVForSegment returned the shared IV slice instead of a copy")
	}
}

func TestUnpad(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{
			name: "valid single byte pad",
			in:   []byte{'a', 'b', 'c', 1},
			want: []byte{'a', 'b', 'c'},
		},
		{
			name: "valid three byte pad",
			in:   []byte{'a', 3, 3, 3},
			want: []byte{'a'},
		},
		{
			name: "full block pad",
			in:   bytes.Repeat([]byte{16}, 16),
			want: []byte{},
		},
		{
			name: "pad value over block size left unchanged",
			in:   []byte{'a', 'b', 17},
			want: []byte{'a', 'b', 17},
		},
		{
			name: "pad value zero left unchanged",
			in:   []byte{'a', 'b', 0},
			want: []byte{'a', 'b', 0},
		},
		{
			name: "mismatched pad bytes left unchanged",
			in:   []byte{'a', 2, 3, 3},
			want: []byte{'a', 2, 3, 3},
		},
		{
			name: "pad longer than buffer left unchanged",
			in:   []byte{5, 5},
			want: []byte{5, 5},
		},
		{
			name: "empty buffer",
			in:   []byte{},
			want: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unpad(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Unpad(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecryptSegmentRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef")
	plaintext := []byte("one whole media segment payload that is not block aligned")

	for _, index := range []int{0, 1, 12} {
		iv := IVForSegment(nil, index)
		ciphertext := encryptForTest(t, plaintext, key, iv)

		got, err := DecryptSegment(ciphertext, key, iv)
		if err != nil {
			t.Fatalf("segment %d: unexpected error: %v", index, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("segment %d: decrypted %q, want %q", index, got, plaintext)
		}
	}
}

func TestDecryptSegmentRejectsBadInputs(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := make([]byte, 16)

	tests := []struct {
		name       string
		ciphertext []byte
		key        []byte
		iv         []byte
	}{
		{"short key", bytes.Repeat([]byte{0}, 16), []byte("short"), iv},
		{"short iv", bytes.Repeat([]byte{0}, 16), key, []byte{1, 2, 3}},
		{"unaligned ciphertext", bytes.Repeat([]byte{0}, 17), key, iv},
		{"empty ciphertext", nil, key, iv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecryptSegment(tt.ciphertext, tt.key, tt.iv)
			var derr *DecryptionError
			if !errors.As(err, &derr) {
				t.Fatalf("expected DecryptionError, got %v", err)
			}
		})
	}
}
