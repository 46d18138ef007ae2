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

// Package keystore obtains the signing key and certificate chain named by a
// SigningConfig, from either a keystore file (JKS or PKCS#12) or a PKCS#11
// token.
package keystore

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"io"
	"time"

	"github.com/ia-sdk/modl-signer/pkg/config"
	"github.com/ia-sdk/modl-signer/pkg/logging"
)

// DefaultTokenTimeout bounds PKCS#11 session acquisition when no timeout is
// configured.
const DefaultTokenTimeout = 30 * time.Second

// Accessor loads the signing key for a configuration. The two
// implementations are FileKeystore and Pkcs11Keystore; the set is closed.
type Accessor interface {
	// LoadSigningKey returns the key and chain for cfg.CertAlias().
	LoadSigningKey(ctx context.Context, cfg *config.SigningConfig) (*SigningKey, error)

	// Close releases any handles. It is safe to call more than once.
	Close() error

	sealed()
}

// Options configures Open.
type Options struct {
	// TokenTimeout bounds PKCS#11 login and key lookup. Zero selects
	// DefaultTokenTimeout.
	TokenTimeout time.Duration

	// Logger receives progress messages. Nil selects the default logger.
	Logger logging.Logger
}

// Open returns the accessor for the configuration's backend.
func Open(cfg *config.SigningConfig, opts Options) (Accessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("signing configuration is nil")
	}
	if opts.TokenTimeout <= 0 {
		opts.TokenTimeout = DefaultTokenTimeout
	}
	opts.Logger = logging.EnsureLogger(opts.Logger)

	switch cfg.Backend() {
	case config.BackendPKCS11:
		return newPkcs11Keystore(opts), nil
	default:
		return newFileKeystore(opts), nil
	}
}

// SigningKey is a private key handle together with the certificate chain
// published alongside signatures. Chain[0] is the leaf and matches Signer.
type SigningKey struct {
	Signer    crypto.Signer
	Chain     []*x509.Certificate
	Algorithm Algorithm
}

func newSigningKey(signer crypto.Signer, chain []*x509.Certificate) (*SigningKey, error) {
	alg, err := AlgorithmFor(signer.Public())
	if err != nil {
		return nil, err
	}
	return &SigningKey{Signer: signer, Chain: chain, Algorithm: alg}, nil
}

// Sign signs message. The message is hashed with the key's hash first;
// Ed25519 keys use the pre-hashed Ed25519ph variant.
//
// Software RSA, ECDSA and Ed25519 keys sign deterministically. ECDSA keys
// held on a PKCS#11 token draw their nonce from the token, so their
// signatures differ between runs.
func (k *SigningKey) Sign(message []byte) ([]byte, error) {
	h := k.Algorithm.Hash
	if h == 0 || !h.Available() {
		return nil, fmt.Errorf("hash %v unavailable for %s", h, k.Algorithm.Name)
	}
	hasher := h.New()
	hasher.Write(message)
	return k.Signer.Sign(k.random(), hasher.Sum(nil), h)
}

// random returns the entropy source for Sign. A nil reader makes
// ecdsa.PrivateKey derive its nonce per RFC 6979.
func (k *SigningKey) random() io.Reader {
	if _, ok := k.Signer.(*ecdsa.PrivateKey); ok {
		return nil
	}
	return rand.Reader
}

// Leaf returns the signing certificate.
func (k *SigningKey) Leaf() *x509.Certificate {
	if len(k.Chain) == 0 {
		return nil
	}
	return k.Chain[0]
}
