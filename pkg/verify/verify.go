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

// Package verify checks a signed module archive against the signature
// manifest embedded in it.
package verify

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ia-sdk/modl-signer/pkg/hashing"
	"github.com/ia-sdk/modl-signer/pkg/hashing/digests"
	"github.com/ia-sdk/modl-signer/pkg/hashing/engines/stream"
	"github.com/ia-sdk/modl-signer/pkg/keystore"
	"github.com/ia-sdk/modl-signer/pkg/logging"
	"github.com/ia-sdk/modl-signer/pkg/manifest"
	"github.com/ia-sdk/modl-signer/pkg/tracing"
)

// Result represents the outcome of a verification operation.
type Result struct {
	Verified bool   // Verified indicates whether the verification succeeded.
	Message  string // Message contains a human-readable description of the result.

	EntryCount         int
	SignatureAlgorithm string
	Signer             string // Subject of the signing certificate.
}

// Options configures Archive.
type Options struct {
	// Roots are the trusted roots for the embedded certificate chain. Nil
	// selects the system pool.
	Roots *x509.CertPool

	// SkipChain disables certificate chain validation. Signatures are still
	// checked against the leaf certificate.
	SkipChain bool

	// CurrentTime is the time certificates must be valid at. Zero selects
	// the current time.
	CurrentTime time.Time

	Logger logging.Logger
}

// Archive verifies a signed module:
//
//  1. reads and parses the embedded signatures.properties
//  2. recomputes every entry digest and compares it with the manifest
//  3. checks each entry signature with the leaf certificate's key
//  4. validates the certificate chain unless disabled
func Archive(ctx context.Context, path string, opts Options) (Result, error) {
	var result Result
	err := tracing.Run(ctx, "modl.verify", map[string]interface{}{"modl.archive": path}, func(ctx context.Context) error {
		var err error
		result, err = verifyArchive(ctx, path, opts)
		return err
	})
	if err != nil {
		return Result{Verified: false, Message: err.Error()}, err
	}
	return result, nil
}

func verifyArchive(ctx context.Context, path string, opts Options) (Result, error) {
	logger := logging.EnsureLogger(opts.Logger).WithField(logging.FieldArchive, filepath.Base(path))

	r, err := zip.OpenReader(path)
	if err != nil {
		return Result{}, NewVerificationError(ErrTypeIO, fmt.Sprintf("failed to open %s", path), err)
	}
	defer r.Close()

	m, entries, err := readManifest(&r.Reader)
	if err != nil {
		return Result{}, err
	}
	logger.Debug("Manifest lists %d entries signed with %s", m.Len(), m.SignatureAlgorithm)

	chain, err := m.Chain()
	if err != nil {
		return Result{}, NewVerificationError(ErrTypeInvalidFormat, "invalid certificate in manifest", err)
	}
	if len(chain) == 0 {
		return Result{}, NewVerificationError(ErrTypeInvalidFormat, "manifest carries no certificate", nil)
	}
	leaf := chain[0]

	if len(keystore.AlgorithmByName(m.SignatureAlgorithm)) == 0 {
		return Result{}, NewVerificationError(ErrTypeInvalidFormat,
			fmt.Sprintf("unknown signature algorithm %q", m.SignatureAlgorithm), nil)
	}
	alg, err := keystore.AlgorithmFor(leaf.PublicKey)
	if err != nil {
		return Result{}, NewVerificationError(ErrTypeInvalidFormat, "unsupported signing certificate", err)
	}
	if alg.Name != m.SignatureAlgorithm {
		return Result{}, NewVerificationError(ErrTypeInvalidFormat,
			fmt.Sprintf("manifest declares %s but the certificate key uses %s", m.SignatureAlgorithm, alg.Name), nil)
	}

	actual, err := digestEntries(ctx, entries, m)
	if err != nil {
		return Result{}, err
	}
	if diff := manifest.ComputeDiff(actual, m); !diff.IsEmpty() {
		return Result{}, NewVerificationError(ErrTypeManifestMismatch, describeDiff(diff), nil)
	}

	verifier, err := CreateSignatureVerifier(leaf.PublicKey, alg)
	if err != nil {
		return Result{}, NewVerificationError(ErrTypeInvalidFormat, "failed to create signature verifier", err)
	}
	for _, rec := range m.Records() {
		if err := verifier.VerifySignature(bytes.NewReader(rec.Signature), bytes.NewReader(rec.Digest.Value())); err != nil {
			return Result{}, NewVerificationErrorWithPath(ErrTypeSignatureInvalid, rec.EntryPath, "signature does not verify", err)
		}
	}
	logger.Debug("Verified %d entry signatures", m.Len())

	if !opts.SkipChain {
		if err := verifyChain(chain, opts); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Verified:           true,
		Message:            fmt.Sprintf("Verified %d entries signed by %s", m.Len(), leaf.Subject),
		EntryCount:         m.Len(),
		SignatureAlgorithm: m.SignatureAlgorithm,
		Signer:             leaf.Subject.String(),
	}, nil
}

// readManifest returns the parsed manifest and the remaining entries. Other
// spellings of the manifest name ("./signatures.properties") are never
// signed, so an archive carrying one is rejected.
func readManifest(r *zip.Reader) (*manifest.SignatureManifest, []*zip.File, error) {
	var (
		manifestFile *zip.File
		entries      []*zip.File
	)
	ignored := hashing.NewConfig().IgnorePaths(manifest.FileName)
	for _, f := range r.File {
		if ignored.ShouldIgnore(f.Name) {
			if f.Name != manifest.FileName {
				return nil, nil, NewVerificationErrorWithPath(ErrTypeInvalidFormat, f.Name, "entry name shadows the manifest", nil)
			}
			if manifestFile != nil {
				return nil, nil, NewVerificationErrorWithPath(ErrTypeInvalidFormat, f.Name, "archive contains more than one manifest", nil)
			}
			manifestFile = f
			continue
		}
		entries = append(entries, f)
	}
	if manifestFile == nil {
		return nil, nil, NewVerificationErrorWithPath(ErrTypeInvalidFormat, manifest.FileName, "archive is not signed", nil)
	}

	rc, err := manifestFile.Open()
	if err != nil {
		return nil, nil, NewVerificationErrorWithPath(ErrTypeIO, manifest.FileName, "failed to open manifest", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, NewVerificationErrorWithPath(ErrTypeIO, manifest.FileName, "failed to read manifest", err)
	}

	m, err := manifest.Unmarshal(data)
	if err != nil {
		return nil, nil, NewVerificationErrorWithPath(ErrTypeInvalidFormat, manifest.FileName, "failed to parse manifest", err)
	}
	return m, entries, nil
}

// digestEntries hashes each entry with the algorithm its record names, or
// the default algorithm for entries without a record.
func digestEntries(ctx context.Context, entries []*zip.File, m *manifest.SignatureManifest) (map[string]digests.Digest, error) {
	hashers := map[string]*stream.ReaderHasher{}
	hasherFor := func(alg string) (*stream.ReaderHasher, error) {
		if h, ok := hashers[alg]; ok {
			return h, nil
		}
		cfg := hashing.NewConfig().WithAlgorithm(alg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		h, err := cfg.NewHasher()
		if err != nil {
			return nil, err
		}
		hashers[alg] = h
		return h, nil
	}

	actual := make(map[string]digests.Digest, len(entries))
	for _, f := range entries {
		if _, dup := actual[f.Name]; dup {
			return nil, NewVerificationErrorWithPath(ErrTypeInvalidFormat, f.Name, "duplicate archive entry", nil)
		}
		alg := hashing.DefaultAlgorithm
		if rec, ok := m.Record(f.Name); ok {
			alg = rec.Digest.Algorithm()
		}
		h, err := hasherFor(alg)
		if err != nil {
			return nil, NewVerificationErrorWithPath(ErrTypeInvalidFormat, f.Name, "unsupported digest algorithm", err)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, NewVerificationErrorWithPath(ErrTypeIO, f.Name, "failed to open entry", err)
		}
		d, err := h.Hash(ctx, rc)
		rc.Close()
		if err != nil {
			return nil, NewVerificationErrorWithPath(ErrTypeIO, f.Name, "failed to read entry", err)
		}
		actual[f.Name] = d
	}
	return actual, nil
}

func verifyChain(chain []*x509.Certificate, opts Options) error {
	roots := opts.Roots
	if roots == nil {
		pool, err := x509.SystemCertPool()
		if err != nil {
			return NewVerificationError(ErrTypeUntrustedChain, "failed to load system roots", err)
		}
		roots = pool
	}

	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}
	_, err := chain[0].Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   opts.CurrentTime,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return NewVerificationError(ErrTypeUntrustedChain, "certificate chain is not trusted", err)
	}
	return nil
}

func describeDiff(diff *manifest.ManifestDiff) string {
	var parts []string
	if len(diff.ExtraEntries) > 0 {
		parts = append(parts, fmt.Sprintf("unsigned entries: %s", strings.Join(diff.ExtraEntries, ", ")))
	}
	if len(diff.MissingEntries) > 0 {
		parts = append(parts, fmt.Sprintf("missing entries: %s", strings.Join(diff.MissingEntries, ", ")))
	}
	for _, mm := range diff.Mismatches {
		parts = append(parts, fmt.Sprintf("%s: expected %s, got %s", mm.EntryPath, mm.ExpectedHash, mm.ActualHash))
	}
	return "archive does not match manifest: " + strings.Join(parts, "; ")
}

// LoadRoots reads trusted root certificates from a PEM or DER file.
func LoadRoots(path string) (*x509.CertPool, error) {
	certs, err := keystore.LoadCertificateFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	return pool, nil
}
