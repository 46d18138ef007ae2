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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ia-sdk/modl-signer/internal/testkeys"
	"github.com/ia-sdk/modl-signer/pkg/config"
)

const (
	testAlias    = "selfsigned"
	testPassword = "password"
)

type fileFixture struct {
	dir      string
	material *testkeys.Material
	certFile string
	jks      string
	p12      string
}

func newFileFixture(t *testing.T, kt testkeys.KeyType) *fileFixture {
	t.Helper()
	dir := t.TempDir()
	m := testkeys.Generate(t, kt, "Module Signer Test")
	return &fileFixture{
		dir:      dir,
		material: m,
		certFile: m.WriteCertPEM(t, dir, "certificate.pem"),
		jks:      m.WriteJKS(t, dir, "keystore.jks", testAlias, testPassword, testPassword),
		p12:      m.WritePKCS12(t, dir, "keystore.p12", testPassword),
	}
}

func resolveFile(t *testing.T, values map[string]string) *config.SigningConfig {
	t.Helper()
	cfg, err := config.Resolve(config.FromMap(config.OriginCLI, values))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return cfg
}

func (f *fileFixture) values(keystore string) map[string]string {
	return map[string]string{
		"certAlias":        testAlias,
		"keystorePassword": testPassword,
		"certFile":         f.certFile,
		"certPassword":     testPassword,
		"keystoreFile":     keystore,
	}
}

func loadKey(t *testing.T, cfg *config.SigningConfig) (*SigningKey, error) {
	t.Helper()
	acc, err := Open(cfg, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() {
		if err := acc.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()
	return acc.LoadSigningKey(context.Background(), cfg)
}

func TestFileKeystore_LoadSigningKey(t *testing.T) {
	tests := []struct {
		name    string
		keyType testkeys.KeyType
		useP12  bool
		wantAlg string
	}{
		{"jks rsa", testkeys.RSA, false, "SHA256withRSA"},
		{"jks ecdsa p256", testkeys.ECDSAP256, false, "SHA256withECDSA"},
		{"jks ecdsa p384", testkeys.ECDSAP384, false, "SHA384withECDSA"},
		{"jks ed25519", testkeys.Ed25519, false, "Ed25519ph"},
		{"pkcs12 rsa", testkeys.RSA, true, "SHA256withRSA"},
		{"pkcs12 ecdsa", testkeys.ECDSAP256, true, "SHA256withECDSA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFileFixture(t, tt.keyType)
			path := f.jks
			if tt.useP12 {
				path = f.p12
			}

			key, err := loadKey(t, resolveFile(t, f.values(path)))
			if err != nil {
				t.Fatalf("LoadSigningKey() error = %v", err)
			}
			if key.Algorithm.Name != tt.wantAlg {
				t.Errorf("Algorithm.Name = %q, want %q", key.Algorithm.Name, tt.wantAlg)
			}
			if !bytes.Equal(key.Leaf().Raw, f.material.Cert.Raw) {
				t.Error("Leaf() is not the certificate from the certificate file")
			}
			if len(key.Chain) != 1 {
				t.Errorf("len(Chain) = %d, want 1 (duplicates must be dropped)", len(key.Chain))
			}
			sig1, err := key.Sign([]byte("entry digest"))
			if err != nil {
				t.Fatalf("Sign() error = %v", err)
			}
			sig2, err := key.Sign([]byte("entry digest"))
			if err != nil {
				t.Fatalf("Sign() error = %v", err)
			}
			if !bytes.Equal(sig1, sig2) {
				t.Error("Sign() is not deterministic for a software key")
			}
		})
	}
}

func TestFileKeystore_AliasIsCaseInsensitive(t *testing.T) {
	f := newFileFixture(t, testkeys.ECDSAP256)
	values := f.values(f.jks)
	values["certAlias"] = "SelfSigned"

	if _, err := loadKey(t, resolveFile(t, values)); err != nil {
		t.Fatalf("LoadSigningKey() error = %v", err)
	}
}

func TestFileKeystore_Errors(t *testing.T) {
	f := newFileFixture(t, testkeys.ECDSAP256)
	other := testkeys.Generate(t, testkeys.ECDSAP256, "other")
	otherCert := other.WriteCertPEM(t, f.dir, "other.pem")
	garbage := filepath.Join(f.dir, "garbage.jks")
	if err := os.WriteFile(garbage, []byte("not a keystore"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	jceks := filepath.Join(f.dir, "keystore.jceks")
	if err := os.WriteFile(jceks, []byte{0xce, 0xce, 0xce, 0xce, 0, 0, 0, 2}, 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tests := []struct {
		name   string
		modify func(map[string]string)
		kind   Kind
	}{
		{"unknown alias", func(v map[string]string) { v["certAlias"] = "nobody" }, KindAliasNotFound},
		{"wrong keystore password", func(v map[string]string) { v["keystorePassword"] = "wrong-password" }, KindBadPassword},
		{"wrong pkcs12 password", func(v map[string]string) {
			v["keystoreFile"] = f.p12
			v["keystorePassword"] = "wrong-password"
		}, KindBadPassword},
		{"missing keystore", func(v map[string]string) { v["keystoreFile"] = filepath.Join(f.dir, "missing.jks") }, KindUnreadableKeystore},
		{"corrupt keystore", func(v map[string]string) { v["keystoreFile"] = garbage }, KindUnreadableKeystore},
		{"jceks keystore", func(v map[string]string) { v["keystoreFile"] = jceks }, KindUnreadableKeystore},
		{"missing certificate file", func(v map[string]string) { v["certFile"] = filepath.Join(f.dir, "missing.pem") }, KindUnreadableKeystore},
		{"certificate of another key", func(v map[string]string) { v["certFile"] = otherCert }, KindUnreadableKeystore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := f.values(f.jks)
			tt.modify(values)

			_, err := loadKey(t, resolveFile(t, values))
			if err == nil {
				t.Fatal("LoadSigningKey() error = nil, want error")
			}
			if !IsKind(err, tt.kind) {
				t.Errorf("error kind mismatch, want %v: %v", tt.kind, err)
			}
			if IsRetryable(err) {
				t.Errorf("IsRetryable() = true for %v", err)
			}
		})
	}
}

func TestFileKeystore_EntryPasswordFallsBackToStorePassword(t *testing.T) {
	dir := t.TempDir()
	m := testkeys.Generate(t, testkeys.RSA, "fallback")
	ks := m.WriteJKS(t, dir, "keystore.jks", testAlias, testPassword, testPassword)

	cfg := resolveFile(t, map[string]string{
		"certAlias":        testAlias,
		"keystorePassword": testPassword,
		"certFile":         m.WriteCertPEM(t, dir, "certificate.pem"),
		"certPassword":     "not-the-entry-password",
		"keystoreFile":     ks,
	})
	if _, err := loadKey(t, cfg); err != nil {
		t.Fatalf("LoadSigningKey() error = %v", err)
	}
}

func TestFileKeystore_WrongEntryPassword(t *testing.T) {
	dir := t.TempDir()
	m := testkeys.Generate(t, testkeys.RSA, "entry")
	ks := m.WriteJKS(t, dir, "keystore.jks", testAlias, testPassword, "entry-password")

	cfg := resolveFile(t, map[string]string{
		"certAlias":        testAlias,
		"keystorePassword": testPassword,
		"certFile":         m.WriteCertPEM(t, dir, "certificate.pem"),
		"certPassword":     "wrong-password",
		"keystoreFile":     ks,
	})
	_, err := loadKey(t, cfg)
	if !IsKind(err, KindBadPassword) {
		t.Fatalf("LoadSigningKey() error = %v, want BadPassword", err)
	}
}

func TestFileKeystore_Closed(t *testing.T) {
	f := newFileFixture(t, testkeys.ECDSAP256)
	cfg := resolveFile(t, f.values(f.jks))
	acc, err := Open(cfg, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := acc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := acc.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := acc.LoadSigningKey(context.Background(), cfg); err == nil {
		t.Error("LoadSigningKey() after Close() should fail")
	}
}

func TestFileKeystore_Canceled(t *testing.T) {
	f := newFileFixture(t, testkeys.ECDSAP256)
	cfg := resolveFile(t, f.values(f.jks))
	acc, _ := Open(cfg, Options{})
	defer acc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := acc.LoadSigningKey(ctx, cfg); !errors.Is(err, context.Canceled) {
		t.Errorf("LoadSigningKey() error = %v, want context.Canceled", err)
	}
}

func TestOpen_SelectsBackend(t *testing.T) {
	f := newFileFixture(t, testkeys.ECDSAP256)
	fileCfg := resolveFile(t, f.values(f.jks))
	pkcs11Cfg := resolveFile(t, map[string]string{
		"certAlias":     testAlias,
		"certFile":      f.certFile,
		"certPassword":  "1234",
		"pkcs11CfgFile": "pkcs11.cfg",
	})

	acc, err := Open(fileCfg, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := acc.(*FileKeystore); !ok {
		t.Errorf("Open(file) = %T, want *FileKeystore", acc)
	}

	acc, err = Open(pkcs11Cfg, Options{TokenTimeout: time.Second})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := acc.(*Pkcs11Keystore); !ok {
		t.Errorf("Open(pkcs11) = %T, want *Pkcs11Keystore", acc)
	}

	if _, err := Open(nil, Options{}); err == nil {
		t.Error("Open(nil) should fail")
	}
}

func TestLoadCertificateFile_DER(t *testing.T) {
	dir := t.TempDir()
	m := testkeys.Generate(t, testkeys.ECDSAP256, "der")
	path := filepath.Join(dir, "certificate.der")
	if err := os.WriteFile(path, m.Cert.Raw, 0o644); err != nil {
		t.Fatalf("Failed to write certificate: %v", err)
	}
	certs, err := LoadCertificateFile(path)
	if err != nil {
		t.Fatalf("LoadCertificateFile() error = %v", err)
	}
	if len(certs) != 1 || !bytes.Equal(certs[0].Raw, m.Cert.Raw) {
		t.Errorf("LoadCertificateFile() = %v", certs)
	}
}

func TestLoadCertificateFile_PEMChain(t *testing.T) {
	dir := t.TempDir()
	leaf := testkeys.Generate(t, testkeys.ECDSAP256, "leaf")
	ca := testkeys.Generate(t, testkeys.ECDSAP256, "ca")
	path := filepath.Join(dir, "chain.pem")
	if err := os.WriteFile(path, append(leaf.CertPEM(), ca.CertPEM()...), 0o644); err != nil {
		t.Fatalf("Failed to write certificate: %v", err)
	}
	certs, err := LoadCertificateFile(path)
	if err != nil {
		t.Fatalf("LoadCertificateFile() error = %v", err)
	}
	if len(certs) != 2 || certs[0].Subject.CommonName != "leaf" {
		t.Errorf("LoadCertificateFile() = %d certs, first %q", len(certs), certs[0].Subject.CommonName)
	}
}

func TestKeyAccessError_Format(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		err  *KeyAccessError
		want string
	}{
		{newError(KindBadPassword, "ks.jks", "rejected", cause), "BadPassword: rejected (path: ks.jks): boom"},
		{newError(KindAliasNotFound, "ks.jks", "missing", nil), "AliasNotFound: missing (path: ks.jks)"},
		{newError(KindTokenUnavailable, "", "timeout", cause), "TokenUnavailable: timeout: boom"},
		{newError(KindUnknown, "", "odd", nil), "UnknownError: odd"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
	wrapped := fmt.Errorf("outer: %w", newError(KindTokenUnavailable, "", "x", cause))
	if !IsRetryable(wrapped) || !errors.Is(wrapped, cause) {
		t.Error("wrapped TokenUnavailable should be retryable and unwrap to its cause")
	}
}
