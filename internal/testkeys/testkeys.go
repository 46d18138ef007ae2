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

// Package testkeys generates signing material for tests: keys, self-signed
// certificates, and JKS and PKCS#12 keystores holding them.
package testkeys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	jks "github.com/pavlo-v-chernykh/keystore-go/v4"
	"software.sslmate.com/src/go-pkcs12"
)

// KeyType selects the generated key.
type KeyType int

const (
	RSA KeyType = iota
	ECDSAP256
	ECDSAP384
	Ed25519
)

// Material is a key with a self-signed certificate.
type Material struct {
	Key  crypto.Signer
	Cert *x509.Certificate
}

// Generate creates a key of the given type and a self-signed certificate
// whose common name is cn.
func Generate(t testing.TB, kt KeyType, cn string) *Material {
	t.Helper()

	var key crypto.Signer
	var err error
	switch kt {
	case RSA:
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	case ECDSAP256:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case ECDSAP384:
		key, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	case Ed25519:
		_, key, err = ed25519.GenerateKey(rand.Reader)
	}
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatalf("Failed to generate serial: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"Module Signing Test"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, key.Public(), key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}
	return &Material{Key: key, Cert: cert}
}

// CertPEM returns the certificate in PEM form.
func (m *Material) CertPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: m.Cert.Raw})
}

// WriteCertPEM writes the certificate to dir/name and returns the path.
func (m *Material) WriteCertPEM(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, m.CertPEM(), 0o644); err != nil {
		t.Fatalf("Failed to write certificate: %v", err)
	}
	return path
}

// WriteJKS writes a JKS keystore holding the key under alias.
func (m *Material) WriteJKS(t testing.TB, dir, name, alias, storePassword, keyPassword string) string {
	t.Helper()

	pkcs8, err := x509.MarshalPKCS8PrivateKey(m.Key)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	ks := jks.New()
	entry := jks.PrivateKeyEntry{
		CreationTime: time.Now(),
		PrivateKey:   pkcs8,
		CertificateChain: []jks.Certificate{
			{Type: "X509", Content: m.Cert.Raw},
		},
	}
	if err := ks.SetPrivateKeyEntry(alias, entry, []byte(keyPassword)); err != nil {
		t.Fatalf("Failed to set keystore entry: %v", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create keystore: %v", err)
	}
	defer f.Close()
	if err := ks.Store(f, []byte(storePassword)); err != nil {
		t.Fatalf("Failed to store keystore: %v", err)
	}
	return path
}

// WritePKCS12 writes a PKCS#12 keystore holding the key and certificate.
func (m *Material) WritePKCS12(t testing.TB, dir, name, password string) string {
	t.Helper()

	data, err := pkcs12.Modern.Encode(m.Key, m.Cert, nil, password)
	if err != nil {
		t.Fatalf("Failed to encode PKCS#12: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write PKCS#12: %v", err)
	}
	return path
}
