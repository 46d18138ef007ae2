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

// Package stream hashes readers through a StreamingHashEngine.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ia-sdk/modl-signer/pkg/hashing/digests"
	hashengines "github.com/ia-sdk/modl-signer/pkg/hashing/engines"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 8192

// ReaderHasher streams a reader into an engine in fixed-size chunks. The
// context is checked between chunks so that large entries can be abandoned.
type ReaderHasher struct {
	engine    hashengines.StreamingHashEngine
	chunkSize int
	buf       []byte
}

// NewReaderHasher constructs a ReaderHasher. A chunkSize of 0 selects
// DefaultChunkSize.
func NewReaderHasher(engine hashengines.StreamingHashEngine, chunkSize int) (*ReaderHasher, error) {
	if engine == nil {
		return nil, fmt.Errorf("hash engine must not be nil")
	}
	if chunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be non-negative, got %d", chunkSize)
	}
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	return &ReaderHasher{
		engine:    engine,
		chunkSize: chunkSize,
		buf:       make([]byte, chunkSize),
	}, nil
}

// DigestName returns the underlying engine's algorithm name.
func (h *ReaderHasher) DigestName() string {
	return h.engine.DigestName()
}

// Hash resets the engine and digests everything r yields.
func (h *ReaderHasher) Hash(ctx context.Context, r io.Reader) (digests.Digest, error) {
	h.engine.Reset(nil)

	for {
		if err := ctx.Err(); err != nil {
			return digests.Digest{}, err
		}
		n, err := r.Read(h.buf)
		if n > 0 {
			h.engine.Update(h.buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return digests.Digest{}, fmt.Errorf("read: %w", err)
		}
	}

	return h.engine.Compute()
}
