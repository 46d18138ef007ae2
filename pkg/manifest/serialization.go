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
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/magiconair/properties"

	"github.com/ia-sdk/modl-signer/pkg/hashing/digests"
)

const (
	keyVersion          = "manifest.version"
	keySignatureAlg     = "signature.algorithm"
	keyCertificateCount = "certificate.count"
	keyEntryCount       = "entry.count"
)

func certificateKey(i int) string { return "certificate." + strconv.Itoa(i) }

func entryKey(i int, suffix string) string {
	return "entry." + strconv.Itoa(i) + "." + suffix
}

// encodeEntryPath percent-escapes each segment of an entry path. Property
// loaders strip leading whitespace from values, so raw names would not
// survive a round trip.
func encodeEntryPath(name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func decodeEntryPath(encoded string) (string, error) {
	return url.PathUnescape(encoded)
}

// Marshal renders the manifest in properties format. Keys are written in a
// fixed order so equal manifests produce identical bytes.
func (m *SignatureManifest) Marshal() ([]byte, error) {
	p := properties.NewProperties()
	p.DisableExpansion = true
	p.WriteSeparator = "="

	set := func(k, v string) error {
		if _, _, err := p.Set(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
		return nil
	}

	kv := [][2]string{
		{keyVersion, strconv.Itoa(Version)},
		{keySignatureAlg, m.SignatureAlgorithm},
		{keyCertificateCount, strconv.Itoa(len(m.Certificates))},
	}
	for i, der := range m.Certificates {
		kv = append(kv, [2]string{certificateKey(i), base64.StdEncoding.EncodeToString(der)})
	}
	kv = append(kv, [2]string{keyEntryCount, strconv.Itoa(len(m.records))})
	for i, r := range m.records {
		kv = append(kv,
			[2]string{entryKey(i, "path"), encodeEntryPath(r.EntryPath)},
			[2]string{entryKey(i, "digest.algorithm"), r.Digest.Algorithm()},
			[2]string{entryKey(i, "digest"), r.Digest.Base64()},
			[2]string{entryKey(i, "signature"), base64.StdEncoding.EncodeToString(r.Signature)},
		)
	}
	for _, e := range kv {
		if err := set(e[0], e[1]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a manifest written by Marshal.
func Unmarshal(data []byte) (*SignatureManifest, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	r := reader{p: p}
	version := r.int(keyVersion)
	if r.err == nil && version != Version {
		return nil, fmt.Errorf("unsupported manifest version %d", version)
	}
	algorithm := r.string(keySignatureAlg)

	certCount := r.int(keyCertificateCount)
	var certs [][]byte
	for i := 0; r.err == nil && i < certCount; i++ {
		certs = append(certs, r.base64(certificateKey(i)))
	}

	entryCount := r.int(keyEntryCount)
	var records []SignatureRecord
	for i := 0; r.err == nil && i < entryCount; i++ {
		path := r.entryPath(entryKey(i, "path"))
		alg := r.string(entryKey(i, "digest.algorithm"))
		digest := r.base64(entryKey(i, "digest"))
		sig := r.base64(entryKey(i, "signature"))
		records = append(records, SignatureRecord{
			EntryPath: path,
			Digest:    digests.NewDigest(alg, digest),
			Signature: sig,
		})
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("manifest has no certificates")
	}

	return newManifest(algorithm, certs, records)
}

// reader accumulates the first lookup error so parsing reads linearly.
type reader struct {
	p   *properties.Properties
	err error
}

func (r *reader) string(key string) string {
	if r.err != nil {
		return ""
	}
	v, ok := r.p.Get(key)
	if !ok || v == "" {
		r.err = fmt.Errorf("manifest is missing %q", key)
		return ""
	}
	return v
}

func (r *reader) entryPath(key string) string {
	v := r.string(key)
	if r.err != nil {
		return ""
	}
	name, err := decodeEntryPath(v)
	if err != nil {
		r.err = fmt.Errorf("manifest key %q is not an escaped path: %w", key, err)
		return ""
	}
	return name
}

func (r *reader) int(key string) int {
	v := r.string(key)
	if r.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		r.err = fmt.Errorf("manifest key %q is not a count: %q", key, v)
		return 0
	}
	return n
}

func (r *reader) base64(key string) []byte {
	v := r.string(key)
	if r.err != nil {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		r.err = fmt.Errorf("manifest key %q is not base64: %w", key, err)
		return nil
	}
	return b
}
