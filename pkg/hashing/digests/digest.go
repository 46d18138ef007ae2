// Copyright 2025 The Sigstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package digests provides the Digest type recorded for every archive entry.
package digests

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Digest is a computed hash together with the name of the algorithm that
// produced it. Its fields are unexported and accessors return copies.
type Digest struct {
	algorithm string
	value     []byte
}

// NewDigest creates a Digest. value is copied.
func NewDigest(algorithm string, value []byte) Digest {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	return Digest{
		algorithm: algorithm,
		value:     valueCopy,
	}
}

// ParseBase64 decodes a digest as stored in a signature manifest.
func ParseBase64(algorithm, encoded string) (Digest, error) {
	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid %s digest encoding: %w", algorithm, err)
	}
	return Digest{algorithm: algorithm, value: value}, nil
}

// Algorithm returns the algorithm name, e.g. "SHA-256".
func (d Digest) Algorithm() string {
	return d.algorithm
}

// Value returns a copy of the raw digest bytes.
func (d Digest) Value() []byte {
	valueCopy := make([]byte, len(d.value))
	copy(valueCopy, d.value)
	return valueCopy
}

// Hex returns the lowercase hexadecimal encoding of the value.
func (d Digest) Hex() string {
	return hex.EncodeToString(d.value)
}

// Base64 returns the standard base64 encoding of the value.
func (d Digest) Base64() string {
	return base64.StdEncoding.EncodeToString(d.value)
}

// Size returns the length in bytes of the digest value.
func (d Digest) Size() int {
	return len(d.value)
}

// IsZero reports whether the digest holds no value.
func (d Digest) IsZero() bool {
	return d.algorithm == "" && len(d.value) == 0
}

// String formats the digest as "algorithm:hexvalue".
func (d Digest) String() string {
	return fmt.Sprintf("%s:%s", d.algorithm, d.Hex())
}

// Equal reports whether both digests use the same algorithm and hold the
// same value. The value comparison is constant time.
func (d Digest) Equal(other Digest) bool {
	if d.algorithm != other.algorithm {
		return false
	}
	return subtle.ConstantTimeCompare(d.value, other.value) == 1
}
