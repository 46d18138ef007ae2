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

// Package manifest defines the signature manifest embedded in a signed
// module archive: one digest and signature per archive entry plus the
// certificate chain that verifies them.
package manifest

import (
	"crypto/x509"
	"fmt"
	"sort"

	"github.com/ia-sdk/modl-signer/pkg/hashing/digests"
)

// FileName is the archive entry that holds the serialized manifest.
const FileName = "signatures.properties"

// Version is the manifest format version written by this package.
const Version = 1

// SignatureRecord binds one archive entry to its digest and signature.
type SignatureRecord struct {
	// EntryPath is the entry name inside the archive.
	EntryPath string

	// Digest is the hash of the entry's uncompressed bytes.
	Digest digests.Digest

	// Signature is the signature over Digest.
	Signature []byte
}

// SignatureManifest is the full set of records for one archive.
type SignatureManifest struct {
	// SignatureAlgorithm names the signing scheme, e.g. "SHA256withRSA".
	SignatureAlgorithm string

	// Certificates is the DER-encoded chain, leaf first.
	Certificates [][]byte

	records []SignatureRecord
}

// New builds a manifest. Records are sorted by entry path and entry paths
// must be unique.
func New(algorithm string, chain []*x509.Certificate, records []SignatureRecord) (*SignatureManifest, error) {
	certs := make([][]byte, 0, len(chain))
	for _, c := range chain {
		certs = append(certs, c.Raw)
	}
	return newManifest(algorithm, certs, records)
}

func newManifest(algorithm string, certs [][]byte, records []SignatureRecord) (*SignatureManifest, error) {
	sorted := make([]SignatureRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EntryPath < sorted[j].EntryPath
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].EntryPath == sorted[i-1].EntryPath {
			return nil, fmt.Errorf("duplicate entry %q", sorted[i].EntryPath)
		}
	}
	return &SignatureManifest{
		SignatureAlgorithm: algorithm,
		Certificates:       certs,
		records:            sorted,
	}, nil
}

// Records returns the records sorted by entry path.
func (m *SignatureManifest) Records() []SignatureRecord {
	out := make([]SignatureRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of records.
func (m *SignatureManifest) Len() int {
	return len(m.records)
}

// Record looks up the record for an entry.
func (m *SignatureManifest) Record(entryPath string) (SignatureRecord, bool) {
	i := sort.Search(len(m.records), func(i int) bool {
		return m.records[i].EntryPath >= entryPath
	})
	if i < len(m.records) && m.records[i].EntryPath == entryPath {
		return m.records[i], true
	}
	return SignatureRecord{}, false
}

// Chain parses the embedded certificates.
func (m *SignatureManifest) Chain() ([]*x509.Certificate, error) {
	chain := make([]*x509.Certificate, 0, len(m.Certificates))
	for i, der := range m.Certificates {
		c, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("certificate %d: %w", i, err)
		}
		chain = append(chain, c)
	}
	return chain, nil
}
