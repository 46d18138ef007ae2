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
	"crypto"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
)

// LoadCertificateFile reads one or more certificates from a PEM or DER
// file. The first certificate is taken as the leaf.
func LoadCertificateFile(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindUnreadableKeystore, path, "failed to read certificate file", err)
	}

	var certs []*x509.Certificate
	if bytes.Contains(data, []byte("-----BEGIN")) {
		certs, err = cryptoutils.UnmarshalCertificatesFromPEM(data)
	} else {
		certs, err = x509.ParseCertificates(data)
	}
	if err != nil {
		return nil, newError(KindUnreadableKeystore, path, "failed to parse certificate file", err)
	}
	if len(certs) == 0 {
		return nil, newError(KindUnreadableKeystore, path, "certificate file contains no certificates", nil)
	}
	return certs, nil
}

// buildChain loads the certificate file, checks that its leaf belongs to
// signer and appends any extra certificates the backend returned.
func buildChain(signer crypto.Signer, certFile string, backendChain []*x509.Certificate) ([]*x509.Certificate, error) {
	chain, err := LoadCertificateFile(certFile)
	if err != nil {
		return nil, err
	}
	if err := cryptoutils.EqualKeys(chain[0].PublicKey, signer.Public()); err != nil {
		return nil, newError(KindUnreadableKeystore, certFile,
			"certificate does not match the signing key", err)
	}

	seen := make(map[string]bool, len(chain))
	for _, c := range chain {
		seen[string(c.Raw)] = true
	}
	for _, c := range backendChain {
		if !seen[string(c.Raw)] {
			chain = append(chain, c)
			seen[string(c.Raw)] = true
		}
	}
	return chain, nil
}

func asSigner(key interface{}) (crypto.Signer, error) {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("private key of type %T does not implement crypto.Signer", key)
	}
	return signer, nil
}
