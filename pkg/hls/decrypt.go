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
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/lucasduport/stream-fetch/pkg/types"
)

// DecryptionError reports a segment that cannot be decrypted because the
// inputs are malformed. It is absorbed into the session failure counters,
// never raised to the caller on its own.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return "cannot decrypt segment: " + e.Reason
}

// IVForSegment returns the initialization vector for the segment at the
// given zero-based index. When the manifest declared an explicit IV, that
// exact value is used for every segment in the session. Otherwise the IV
// is the big-endian 16-byte encoding of the index.
//
// The index-based derivation is a convention of the observed content
// provider, not the HLS default (which would use the media sequence
// number). Changing it would change the decrypted output.
func IVForSegment(enc *types.EncryptionInfo, index int) []byte {
	iv := make([]byte, aes.BlockSize)
	if enc != nil && len(enc.IV) == aes.BlockSize {
		copy(iv, enc.IV)
		return iv
	}
	binary.BigEndian.PutUint64(iv[8:], uint64(index))
	return iv
}

// DecryptSegment decrypts one whole segment with AES-128-CBC and strips
// PKCS7 padding. The key is shared read-only across all segments of a
// session; the IV comes from IVForSegment.
func DecryptSegment(ciphertext, key, iv []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, &DecryptionError{Reason: fmt.Sprintf("key must be 16 bytes, got %d", len(key))}
	}
	if len(iv) != aes.BlockSize {
		return nil, &DecryptionError{Reason: fmt.Sprintf("IV must be %d bytes, got %d", aes.BlockSize, len(iv))}
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, &DecryptionError{Reason: fmt.Sprintf("ciphertext length %d is not a multiple of the block size", len(ciphertext))}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &DecryptionError{Reason: err.Error()}
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return Unpad(plaintext), nil
}

// Unpad removes PKCS7 padding. The final byte p gives the pad length; the
// buffer is only trimmed when 1 <= p <= 16 and the last p bytes all equal
// p. Anything else is treated as unpadded rather than over-truncating.
func Unpad(b []byte) []byte {
	if len(b) == 0 {
		return b
	}

	p := int(b[len(b)-1])
	if p < 1 || p > aes.BlockSize || p > len(b) {
		return b
	}
	for _, c := range b[len(b)-p:] {
		if int(c) != p {
			return b
		}
	}
	return b[:len(b)-p]
}
