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

package manifest

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ia-sdk/modl-signer/pkg/hashing/digests"
)

func newTestDigest(b byte) digests.Digest {
	return digests.NewDigest("SHA-256", []byte{b, b, b})
}

func testRecords() []SignatureRecord {
	return []SignatureRecord{
		{EntryPath: "module.xml", Digest: newTestDigest(0x02), Signature: []byte("sig-2")},
		{EntryPath: "lib/a.jar", Digest: newTestDigest(0x01), Signature: []byte("sig-1")},
		{EntryPath: "doc/", Digest: newTestDigest(0x03), Signature: []byte("sig-3")},
	}
}

func testCertificate(t *testing.T) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "selfsigned"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}
	return cert
}

func TestNew_SortsRecords(t *testing.T) {
	m, err := New("SHA256withECDSA", []*x509.Certificate{testCertificate(t)}, testRecords())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	recs := m.Records()
	want := []string{"doc/", "lib/a.jar", "module.xml"}
	for i, w := range want {
		if recs[i].EntryPath != w {
			t.Errorf("Records()[%d] = %q, want %q", i, recs[i].EntryPath, w)
		}
	}
	if r, ok := m.Record("lib/a.jar"); !ok || string(r.Signature) != "sig-1" {
		t.Errorf("Record(lib/a.jar) = %v, %v", r, ok)
	}
	if _, ok := m.Record("nope"); ok {
		t.Error("Record(nope) should not be found")
	}
	chain, err := m.Chain()
	if err != nil || len(chain) != 1 {
		t.Fatalf("Chain() = %v, %v", chain, err)
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	recs := append(testRecords(), SignatureRecord{EntryPath: "module.xml", Digest: newTestDigest(9)})
	if _, err := New("SHA256withRSA", nil, recs); err == nil {
		t.Error("New() should reject duplicate entry paths")
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	m, err := newManifest("SHA256withRSA", [][]byte{[]byte("leaf"), []byte("ca")}, testRecords())
	if err != nil {
		t.Fatalf("newManifest() error = %v", err)
	}
	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, data)
	}
	if got.SignatureAlgorithm != "SHA256withRSA" {
		t.Errorf("SignatureAlgorithm = %q", got.SignatureAlgorithm)
	}
	if len(got.Certificates) != 2 || !bytes.Equal(got.Certificates[0], []byte("leaf")) {
		t.Errorf("Certificates = %q", got.Certificates)
	}
	if got.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", got.Len())
	}
	for i, r := range got.Records() {
		want := m.Records()[i]
		if r.EntryPath != want.EntryPath || !r.Digest.Equal(want.Digest) || !bytes.Equal(r.Signature, want.Signature) {
			t.Errorf("record %d = %+v, want %+v", i, r, want)
		}
	}
}

func TestMarshal_EntryPathsRoundTrip(t *testing.T) {
	names := []string{
		" lead.txt",
		"dir/ padded /file ",
		"tab\tname",
		"100%.txt",
		"résumé/ñ.txt",
		`win\path.txt`,
		"key=value:#!.txt",
		"lib/",
	}
	var recs []SignatureRecord
	for i, n := range names {
		recs = append(recs, SignatureRecord{EntryPath: n, Digest: newTestDigest(byte(i)), Signature: []byte{byte(i)}})
	}
	m, err := newManifest("SHA256withRSA", [][]byte{[]byte("leaf")}, recs)
	if err != nil {
		t.Fatalf("newManifest() error = %v", err)
	}
	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, data)
	}
	for _, n := range names {
		if _, ok := got.Record(n); !ok {
			t.Errorf("entry path %q did not survive a round trip\n%s", n, data)
		}
	}
	if !strings.Contains(string(data), "=lib/\n") {
		t.Errorf("plain paths should be written unescaped:\n%s", data)
	}
}

func TestUnmarshal_BadEntryPathEscape(t *testing.T) {
	m, err := newManifest("SHA256withRSA", [][]byte{[]byte("leaf")}, testRecords())
	if err != nil {
		t.Fatalf("newManifest() error = %v", err)
	}
	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	data = bytes.Replace(data, []byte("=doc/"), []byte("=doc%zz/"), 1)
	if _, err := Unmarshal(data); err == nil {
		t.Error("Unmarshal() should reject a malformed path escape")
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	recs := testRecords()
	reversed := []SignatureRecord{recs[2], recs[1], recs[0]}

	a, _ := newManifest("SHA256withRSA", [][]byte{[]byte("leaf")}, recs)
	b, _ := newManifest("SHA256withRSA", [][]byte{[]byte("leaf")}, reversed)
	da, err := a.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	db, err := b.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(da, db) {
		t.Errorf("Marshal() not deterministic:\n%s\n---\n%s", da, db)
	}
	if !strings.HasPrefix(string(da), "manifest.version=1\n") {
		t.Errorf("unexpected header:\n%s", da)
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"wrong version", "manifest.version=2\n"},
		{"missing algorithm", "manifest.version=1\ncertificate.count=0\nentry.count=0\n"},
		{"no certificates", "manifest.version=1\nsignature.algorithm=SHA256withRSA\ncertificate.count=0\nentry.count=0\n"},
		{"bad count", "manifest.version=1\nsignature.algorithm=SHA256withRSA\ncertificate.count=x\n"},
		{"bad base64", "manifest.version=1\nsignature.algorithm=SHA256withRSA\ncertificate.count=1\ncertificate.0=***\nentry.count=0\n"},
		{"missing entry", "manifest.version=1\nsignature.algorithm=SHA256withRSA\ncertificate.count=1\ncertificate.0=AAAA\nentry.count=1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tt.data)); err == nil {
				t.Error("Unmarshal() error = nil, want error")
			}
		})
	}
}

func TestComputeDiff(t *testing.T) {
	m, _ := newManifest("SHA256withRSA", [][]byte{[]byte("leaf")}, testRecords())

	actual := map[string]digests.Digest{
		"doc/":      newTestDigest(0x03),
		"lib/a.jar": newTestDigest(0x07),
		"extra.txt": newTestDigest(0x04),
	}
	diff := ComputeDiff(actual, m)
	if diff.IsEmpty() {
		t.Fatal("IsEmpty() = true, want differences")
	}
	if len(diff.ExtraEntries) != 1 || diff.ExtraEntries[0] != "extra.txt" {
		t.Errorf("ExtraEntries = %v", diff.ExtraEntries)
	}
	if len(diff.MissingEntries) != 1 || diff.MissingEntries[0] != "module.xml" {
		t.Errorf("MissingEntries = %v", diff.MissingEntries)
	}
	if len(diff.Mismatches) != 1 || diff.Mismatches[0].EntryPath != "lib/a.jar" {
		t.Errorf("Mismatches = %v", diff.Mismatches)
	}

	same := map[string]digests.Digest{}
	for _, r := range m.Records() {
		same[r.EntryPath] = r.Digest
	}
	if d := ComputeDiff(same, m); !d.IsEmpty() {
		t.Errorf("ComputeDiff() = %+v, want empty", d)
	}
}
