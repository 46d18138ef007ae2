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

package verify

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ia-sdk/modl-signer/internal/testarchive"
	"github.com/ia-sdk/modl-signer/internal/testkeys"
	"github.com/ia-sdk/modl-signer/pkg/keystore"
	"github.com/ia-sdk/modl-signer/pkg/manifest"
	"github.com/ia-sdk/modl-signer/pkg/signing"
)

type signedFixture struct {
	dir      string
	path     string
	material *testkeys.Material
}

func newSignedFixture(t *testing.T, kt testkeys.KeyType) *signedFixture {
	t.Helper()
	dir := t.TempDir()
	in := testarchive.Write(t, dir, "unsigned.modl", testarchive.Sample())

	m := testkeys.Generate(t, kt, "Verify Test")
	alg, err := keystore.AlgorithmFor(m.Key.Public())
	if err != nil {
		t.Fatalf("AlgorithmFor() error = %v", err)
	}
	key := &keystore.SigningKey{Signer: m.Key, Chain: []*x509.Certificate{m.Cert}, Algorithm: alg}

	s, err := signing.NewArchiveSigner(signing.ArchiveSignerOptions{OutputDir: dir, ModuleName: "Verify Test"})
	if err != nil {
		t.Fatalf("NewArchiveSigner() error = %v", err)
	}
	out, err := s.Sign(context.Background(), in, key)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return &signedFixture{dir: dir, path: out, material: m}
}

func (f *signedFixture) roots() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(f.material.Cert)
	return pool
}

// rewrite copies the signed archive, letting edit replace entry contents.
// Returning nil from edit drops the entry.
func (f *signedFixture) rewrite(t *testing.T, edit func(name string, data []byte) []byte, extra ...testarchive.Entry) string {
	t.Helper()
	var entries []testarchive.Entry
	for _, e := range testarchive.Read(t, f.path) {
		data := edit(e.Name, e.Content)
		if data == nil && !strings.HasSuffix(e.Name, "/") {
			continue
		}
		entries = append(entries, testarchive.Entry{Name: e.Name, Content: data, Method: zip.Deflate})
	}
	entries = append(entries, extra...)
	return testarchive.Write(t, f.dir, "tampered.modl", entries)
}

func keep(_ string, data []byte) []byte { return data }

func TestArchive(t *testing.T) {
	for _, kt := range []testkeys.KeyType{testkeys.RSA, testkeys.ECDSAP256, testkeys.ECDSAP384, testkeys.Ed25519} {
		f := newSignedFixture(t, kt)
		res, err := Archive(context.Background(), f.path, Options{Roots: f.roots()})
		if err != nil {
			t.Fatalf("key type %d: Archive() error = %v", kt, err)
		}
		if !res.Verified {
			t.Errorf("key type %d: Verified = false", kt)
		}
		if res.EntryCount != len(testarchive.Sample()) {
			t.Errorf("EntryCount = %d, want %d", res.EntryCount, len(testarchive.Sample()))
		}
		if !strings.Contains(res.Signer, "Verify Test") {
			t.Errorf("Signer = %q", res.Signer)
		}
	}
}

func TestArchive_Failures(t *testing.T) {
	f := newSignedFixture(t, testkeys.ECDSAP256)
	other := testkeys.Generate(t, testkeys.ECDSAP256, "Someone Else")
	otherRoots := x509.NewCertPool()
	otherRoots.AddCert(other.Cert)

	tests := []struct {
		name     string
		path     func(t *testing.T) string
		opts     Options
		wantType ErrorType
		wantPath string
	}{
		{
			name:     "modified entry",
			path:     func(t *testing.T) string { return f.rewrite(t, modify("license.html", []byte("changed"))) },
			opts:     Options{SkipChain: true},
			wantType: ErrTypeManifestMismatch,
		},
		{
			name: "removed entry",
			path: func(t *testing.T) string {
				return f.rewrite(t, func(name string, data []byte) []byte {
					if name == "license.html" {
						return nil
					}
					return data
				})
			},
			opts:     Options{SkipChain: true},
			wantType: ErrTypeManifestMismatch,
		},
		{
			name: "added entry",
			path: func(t *testing.T) string {
				return f.rewrite(t, keep, testarchive.Entry{Name: "extra.class", Content: []byte("x"), Method: zip.Deflate})
			},
			opts:     Options{SkipChain: true},
			wantType: ErrTypeManifestMismatch,
		},
		{
			name:     "forged signature",
			path:     func(t *testing.T) string { return f.rewrite(t, forgeSignature(t)) },
			opts:     Options{SkipChain: true},
			wantType: ErrTypeSignatureInvalid,
			wantPath: "doc/index.html",
		},
		{
			name:     "corrupt manifest",
			path:     func(t *testing.T) string { return f.rewrite(t, modify(manifest.FileName, []byte("manifest.version=1\n"))) },
			opts:     Options{SkipChain: true},
			wantType: ErrTypeInvalidFormat,
		},
		{
			name: "shadow manifest entry",
			path: func(t *testing.T) string {
				return f.rewrite(t, keep, testarchive.Entry{Name: "./" + manifest.FileName, Content: []byte("x"), Method: zip.Deflate})
			},
			opts:     Options{SkipChain: true},
			wantType: ErrTypeInvalidFormat,
			wantPath: "./" + manifest.FileName,
		},
		{
			name: "unknown algorithm",
			path: func(t *testing.T) string {
				return f.rewrite(t, func(name string, data []byte) []byte {
					if name != manifest.FileName {
						return data
					}
					return bytes.Replace(data, []byte("SHA256withECDSA"), []byte("MD5withRSA"), 1)
				})
			},
			opts:     Options{SkipChain: true},
			wantType: ErrTypeInvalidFormat,
		},
		{
			name: "unsigned archive",
			path: func(t *testing.T) string {
				return testarchive.Write(t, t.TempDir(), "unsigned.modl", testarchive.Sample())
			},
			wantType: ErrTypeInvalidFormat,
		},
		{
			name: "not an archive",
			path: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "junk.modl")
				if err := os.WriteFile(p, []byte("junk"), 0o600); err != nil {
					t.Fatalf("WriteFile() error = %v", err)
				}
				return p
			},
			wantType: ErrTypeIO,
		},
		{
			name:     "untrusted chain",
			path:     func(*testing.T) string { return f.path },
			opts:     Options{Roots: otherRoots},
			wantType: ErrTypeUntrustedChain,
		},
		{
			name:     "expired certificate",
			path:     func(*testing.T) string { return f.path },
			opts:     Options{Roots: f.roots(), CurrentTime: time.Now().AddDate(50, 0, 0)},
			wantType: ErrTypeUntrustedChain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Archive(context.Background(), tt.path(t), tt.opts)
			if err == nil {
				t.Fatal("Archive() error = nil")
			}
			if res.Verified {
				t.Error("Verified = true on failure")
			}
			if !IsType(err, tt.wantType) {
				t.Errorf("Archive() error = %v, want type %s", err, tt.wantType)
			}
			var ve *VerificationError
			if tt.wantPath != "" && errors.As(err, &ve) && ve.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", ve.Path, tt.wantPath)
			}
		})
	}
}

func modify(target string, content []byte) func(string, []byte) []byte {
	return func(name string, data []byte) []byte {
		if name == target {
			return content
		}
		return data
	}
}

// forgeSignature replaces the signature of doc/index.html with the one of
// license.html; both are well-formed but only one matches its digest.
func forgeSignature(t *testing.T) func(string, []byte) []byte {
	return func(name string, data []byte) []byte {
		if name != manifest.FileName {
			return data
		}
		m, err := manifest.Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		doc, _ := m.Record("doc/index.html")
		lic, _ := m.Record("license.html")
		return bytes.Replace(data,
			[]byte(base64.StdEncoding.EncodeToString(doc.Signature)),
			[]byte(base64.StdEncoding.EncodeToString(lic.Signature)), 1)
	}
}

func TestArchive_SystemRootsRejectSelfSigned(t *testing.T) {
	f := newSignedFixture(t, testkeys.RSA)
	if _, err := Archive(context.Background(), f.path, Options{}); !IsType(err, ErrTypeUntrustedChain) {
		t.Errorf("Archive() error = %v, want UntrustedChain", err)
	}
}

func TestLoadRoots(t *testing.T) {
	m := testkeys.Generate(t, testkeys.ECDSAP256, "Root")
	path := m.WriteCertPEM(t, t.TempDir(), "roots.pem")
	if _, err := LoadRoots(path); err != nil {
		t.Fatalf("LoadRoots() error = %v", err)
	}
	if _, err := LoadRoots(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("LoadRoots() expected error for missing file")
	}
}

func TestVerificationError(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := NewVerificationErrorWithPath(ErrTypeIO, "a.jar", "failed to read entry", cause)
	if got, want := err.Error(), "IOError: failed to read entry (path: a.jar): unexpected EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is should reach the cause")
	}
	if IsType(errors.New("plain"), ErrTypeIO) {
		t.Error("IsType(plain error) = true")
	}
}
