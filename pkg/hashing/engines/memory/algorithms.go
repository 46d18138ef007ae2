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

package memory

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	hashengines "github.com/ia-sdk/modl-signer/pkg/hashing/engines"
	"golang.org/x/crypto/blake2b"
)

// Algorithm names as written to signature manifests.
const (
	SHA256     = "SHA-256"
	SHA384     = "SHA-384"
	SHA512     = "SHA-512"
	BLAKE2b512 = "BLAKE2b-512"
)

func init() {
	register(SHA256, sha256.Size, func() (hash.Hash, error) { return sha256.New(), nil })
	register(SHA384, sha512.Size384, func() (hash.Hash, error) { return sha512.New384(), nil })
	register(SHA512, sha512.Size, func() (hash.Hash, error) { return sha512.New(), nil })
	register(BLAKE2b512, blake2b.Size, func() (hash.Hash, error) { return blake2b.New512(nil) })
}

func register(name string, size int, factory HashFactoryFunc) {
	hashengines.MustRegister(name, func() (hashengines.StreamingHashEngine, error) {
		return NewGenericHashEngine(name, size, factory, nil)
	})
}

// NewSHA256 returns a SHA-256 engine seeded with initialData.
func NewSHA256(initialData []byte) (*GenericHashEngine, error) {
	return NewGenericHashEngine(SHA256, sha256.Size, func() (hash.Hash, error) { return sha256.New(), nil }, initialData)
}
