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

package keystore

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	jks "github.com/pavlo-v-chernykh/keystore-go/v4"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/ia-sdk/modl-signer/pkg/config"
	"github.com/ia-sdk/modl-signer/pkg/logging"
)

var (
	jksMagic   = []byte{0xfe, 0xed, 0xfe, 0xed}
	jceksMagic = []byte{0xce, 0xce, 0xce, 0xce}
)

// FileKeystore reads the signing key from a JKS or PKCS#12 keystore file.
type FileKeystore struct {
	logger logging.Logger

	mu     sync.Mutex
	closed bool
	keys   []*SigningKey
}

var _ Accessor = (*FileKeystore)(nil)

func newFileKeystore(opts Options) *FileKeystore {
	return &FileKeystore{logger: opts.Logger}
}

func (*FileKeystore) sealed() {}

// LoadSigningKey opens cfg.KeystoreFile() with the keystore password and
// decrypts the entry cfg.CertAlias().
func (k *FileKeystore) LoadSigningKey(ctx context.Context, cfg *config.SigningConfig) (*SigningKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, fmt.Errorf("keystore is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := cfg.KeystoreFile()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindUnreadableKeystore, path, "failed to read keystore", err)
	}

	var key *SigningKey
	switch {
	case bytes.HasPrefix(data, jksMagic):
		k.logger.Debug("Reading JKS keystore %s", path)
		key, err = loadJKS(data, cfg)
	case bytes.HasPrefix(data, jceksMagic):
		return nil, newError(KindUnreadableKeystore, path, "JCEKS keystores are not supported; convert to PKCS#12", nil)
	default:
		k.logger.Debug("Reading PKCS#12 keystore %s", path)
		key, err = loadPKCS12(data, cfg)
	}
	if err != nil {
		var kae *KeyAccessError
		if errors.As(err, &kae) && kae.Path == "" {
			kae.Path = path
		}
		return nil, err
	}

	k.keys = append(k.keys, key)
	return key, nil
}

// Close drops references to loaded keys.
func (k *FileKeystore) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	k.keys = nil
	return nil
}

// isDigestError reports whether a keystore-go error comes from an integrity
// check, which is how a wrong password surfaces.
func isDigestError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "digest")
}

func loadJKS(data []byte, cfg *config.SigningConfig) (*SigningKey, error) {
	ks := jks.New()
	if err := ks.Load(bytes.NewReader(data), []byte(cfg.KeystorePassword())); err != nil {
		if isDigestError(err) {
			return nil, newError(KindBadPassword, "", "keystore password was rejected", err)
		}
		return nil, newError(KindUnreadableKeystore, "", "failed to load JKS keystore", err)
	}

	alias := cfg.CertAlias()
	if !ks.IsPrivateKeyEntry(alias) {
		return nil, newError(KindAliasNotFound, "",
			fmt.Sprintf("no private key entry with alias %q (available: %s)", alias, strings.Join(ks.Aliases(), ", ")), nil)
	}

	entry, err := ks.GetPrivateKeyEntry(alias, []byte(cfg.CertPassword()))
	if err != nil && isDigestError(err) && cfg.CertPassword() != cfg.KeystorePassword() {
		entry, err = ks.GetPrivateKeyEntry(alias, []byte(cfg.KeystorePassword()))
	}
	if err != nil {
		if isDigestError(err) {
			return nil, newError(KindBadPassword, "", fmt.Sprintf("certificate password was rejected for alias %q", alias), err)
		}
		return nil, newError(KindUnreadableKeystore, "", fmt.Sprintf("failed to read entry %q", alias), err)
	}

	priv, err := x509.ParsePKCS8PrivateKey(entry.PrivateKey)
	if err != nil {
		return nil, newError(KindUnreadableKeystore, "", "failed to parse private key", err)
	}
	signer, err := asSigner(priv)
	if err != nil {
		return nil, newError(KindUnreadableKeystore, "", "unsupported private key", err)
	}

	chain := make([]*x509.Certificate, 0, len(entry.CertificateChain))
	for _, c := range entry.CertificateChain {
		cert, err := x509.ParseCertificate(c.Content)
		if err != nil {
			return nil, newError(KindUnreadableKeystore, "", "failed to parse certificate in keystore", err)
		}
		chain = append(chain, cert)
	}

	return finishKey(signer, cfg, chain)
}

// loadPKCS12 decodes a PKCS#12 file. The format carries a single key, so
// the alias is not checked and the keystore password protects everything.
func loadPKCS12(data []byte, cfg *config.SigningConfig) (*SigningKey, error) {
	priv, leaf, cas, err := pkcs12.DecodeChain(data, cfg.KeystorePassword())
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return nil, newError(KindBadPassword, "", "keystore password was rejected", err)
	}
	if err != nil {
		return nil, newError(KindUnreadableKeystore, "", "failed to decode keystore", err)
	}

	signer, err := asSigner(priv)
	if err != nil {
		return nil, newError(KindUnreadableKeystore, "", "unsupported private key", err)
	}

	return finishKey(signer, cfg, append([]*x509.Certificate{leaf}, cas...))
}

func finishKey(signer crypto.Signer, cfg *config.SigningConfig, backendChain []*x509.Certificate) (*SigningKey, error) {
	chain, err := buildChain(signer, cfg.CertFile(), backendChain)
	if err != nil {
		return nil, err
	}
	key, err := newSigningKey(signer, chain)
	if err != nil {
		return nil, newError(KindUnreadableKeystore, "", "unsupported signing key", err)
	}
	return key, nil
}
