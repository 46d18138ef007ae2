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

// Package hashing configures how archive entries are digested before they
// are signed.
package hashing

import (
	"fmt"
	"path"
	"strings"

	hashengines "github.com/ia-sdk/modl-signer/pkg/hashing/engines"
	"github.com/ia-sdk/modl-signer/pkg/hashing/engines/memory"
	"github.com/ia-sdk/modl-signer/pkg/hashing/engines/stream"
)

// DefaultAlgorithm is the digest algorithm recorded for each entry.
const DefaultAlgorithm = memory.SHA256

// Config holds the entry hashing settings.
type Config struct {
	hashAlgorithm string

	// Archive entry names excluded from signing.
	ignoredPaths []string
}

// NewConfig returns the defaults: SHA-256, nothing ignored.
func NewConfig() *Config {
	return &Config{
		hashAlgorithm: DefaultAlgorithm,
		ignoredPaths:  []string{},
	}
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	return &Config{
		hashAlgorithm: c.hashAlgorithm,
		ignoredPaths:  append([]string(nil), c.ignoredPaths...),
	}
}

// WithAlgorithm selects the digest algorithm by manifest name.
func (c *Config) WithAlgorithm(algorithm string) *Config {
	c.hashAlgorithm = algorithm
	return c
}

// IgnorePaths excludes entries by exact name.
func (c *Config) IgnorePaths(paths ...string) *Config {
	for _, p := range paths {
		c.ignoredPaths = append(c.ignoredPaths, strings.TrimPrefix(path.Clean(p), "/"))
	}
	return c
}

// Algorithm returns the configured algorithm name.
func (c *Config) Algorithm() string {
	return c.hashAlgorithm
}

// ShouldIgnore reports whether an entry is excluded.
func (c *Config) ShouldIgnore(name string) bool {
	clean := strings.TrimPrefix(path.Clean(name), "/")
	for _, p := range c.ignoredPaths {
		if clean == p {
			return true
		}
	}
	return false
}

// Validate checks that the algorithm is known.
func (c *Config) Validate() error {
	if !hashengines.IsSupported(c.hashAlgorithm) {
		return fmt.Errorf("unsupported hash algorithm %q (supported: %v)",
			c.hashAlgorithm, hashengines.SupportedAlgorithms())
	}
	return nil
}

// NewHasher returns a reader hasher for the configured algorithm. Hashers
// are not safe for concurrent use.
func (c *Config) NewHasher() (*stream.ReaderHasher, error) {
	engine, err := hashengines.Create(c.hashAlgorithm)
	if err != nil {
		return nil, err
	}
	return stream.NewReaderHasher(engine, stream.DefaultChunkSize)
}
