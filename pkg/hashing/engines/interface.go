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

// Package hashengines defines the streaming hash engines used to digest
// archive entries and a registry that maps manifest algorithm names to them.
package hashengines

import (
	"github.com/ia-sdk/modl-signer/pkg/hashing/digests"
)

// HashEngine computes a digest.
type HashEngine interface {
	// Compute finalizes the hash and returns the digest.
	Compute() (digests.Digest, error)

	// DigestName returns the algorithm name recorded in manifests, e.g. "SHA-256".
	DigestName() string

	// DigestSize returns the size in bytes of the produced digest.
	DigestSize() int
}

// Streaming feeds data to a hash engine incrementally.
type Streaming interface {
	// Update appends bytes to the hash state.
	Update(data []byte)

	// Reset clears the hash state and seeds it with data.
	Reset(data []byte)
}

// StreamingHashEngine combines HashEngine and Streaming.
type StreamingHashEngine interface {
	HashEngine
	Streaming
}
