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

package signing

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ia-sdk/modl-signer/pkg/hashing"
	"github.com/ia-sdk/modl-signer/pkg/keystore"
	"github.com/ia-sdk/modl-signer/pkg/logging"
	"github.com/ia-sdk/modl-signer/pkg/manifest"
)

// ManifestModTime is the modification time recorded for the embedded
// manifest entry so that signing the same input twice yields the same bytes.
var ManifestModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

//nolint:revive
type ArchiveSignerOptions struct {
	// OutputDir receives the signed archive. It must exist.
	OutputDir string

	// ModuleName is the display name the output file is derived from.
	ModuleName string

	// Hashing selects the entry digest algorithm. Nil selects SHA-256.
	Hashing *hashing.Config

	Logger logging.Logger
}

// ArchiveSigner produces a signed copy of a module archive.
type ArchiveSigner struct {
	opts ArchiveSignerOptions
}

// NewArchiveSigner validates the options.
func NewArchiveSigner(opts ArchiveSignerOptions) (*ArchiveSigner, error) {
	if opts.ModuleName == "" {
		return nil, fmt.Errorf("module name is required")
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if opts.Hashing == nil {
		opts.Hashing = hashing.NewConfig()
	}
	opts.Hashing = opts.Hashing.Clone().IgnorePaths(manifest.FileName)
	if err := opts.Hashing.Validate(); err != nil {
		return nil, err
	}
	opts.Logger = logging.EnsureLogger(opts.Logger)
	return &ArchiveSigner{opts: opts}, nil
}

// OutputPath returns where the signed archive is written.
func (s *ArchiveSigner) OutputPath() string {
	return filepath.Join(s.opts.OutputDir, SignedModuleName(s.opts.ModuleName))
}

// Sign digests and signs every entry of the unsigned archive and writes a
// copy with the signature manifest embedded. It returns the path of the
// signed archive. The input archive is never modified, and on failure no
// output file is left behind.
func (s *ArchiveSigner) Sign(ctx context.Context, unsignedArchive string, key *keystore.SigningKey) (string, error) {
	out, _, err := s.sign(ctx, unsignedArchive, key)
	return out, err
}

func (s *ArchiveSigner) sign(ctx context.Context, unsignedArchive string, key *keystore.SigningKey) (string, *manifest.SignatureManifest, error) {
	if key == nil || key.Signer == nil {
		return "", nil, newSigningError(ErrKindSign, "", "no signing key", nil)
	}

	out := s.OutputPath()
	if samePath(out, unsignedArchive) {
		return "", nil, newSigningError(ErrKindArchiveWrite, "", fmt.Sprintf("output %s would overwrite the unsigned archive", out), nil)
	}

	r, err := zip.OpenReader(unsignedArchive)
	if err != nil {
		return "", nil, newSigningError(ErrKindArchiveRead, "", fmt.Sprintf("failed to open %s", unsignedArchive), err)
	}
	defer r.Close()

	entries := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if s.opts.Hashing.ShouldIgnore(f.Name) {
			s.opts.Logger.Debug("Replacing existing %s", f.Name)
			continue
		}
		entries = append(entries, f)
	}

	m, err := s.signEntries(ctx, entries, key)
	if err != nil {
		return "", nil, err
	}

	data, err := m.Marshal()
	if err != nil {
		return "", nil, newSigningError(ErrKindArchiveWrite, manifest.FileName, "failed to serialize manifest", err)
	}

	if err := s.writeArchive(ctx, out, r.Comment, entries, data); err != nil {
		return "", nil, err
	}
	s.opts.Logger.Info("Signed %d entries into %s", m.Len(), out)
	return out, m, nil
}

func (s *ArchiveSigner) signEntries(ctx context.Context, entries []*zip.File, key *keystore.SigningKey) (*manifest.SignatureManifest, error) {
	hasher, err := s.opts.Hashing.NewHasher()
	if err != nil {
		return nil, newSigningError(ErrKindSign, "", "failed to create hasher", err)
	}

	records := make([]manifest.SignatureRecord, 0, len(entries))
	for _, f := range entries {
		if err := ctx.Err(); err != nil {
			return nil, newSigningError(ErrKindCanceled, f.Name, "signing canceled", err)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, newSigningError(ErrKindArchiveRead, f.Name, "failed to open entry", err)
		}
		d, err := hasher.Hash(ctx, rc)
		rc.Close()
		if err != nil {
			return nil, newSigningError(ErrKindArchiveRead, f.Name, "failed to read entry", err)
		}

		sig, err := key.Sign(d.Value())
		if err != nil {
			return nil, newSigningError(ErrKindSign, f.Name, "signing backend failed", err)
		}
		s.opts.Logger.Debug("Signed %s (%s)", f.Name, d)

		records = append(records, manifest.SignatureRecord{
			EntryPath: f.Name,
			Digest:    d,
			Signature: sig,
		})
	}

	m, err := manifest.New(key.Algorithm.Name, key.Chain, records)
	if err != nil {
		return nil, newSigningError(ErrKindArchiveRead, "", "invalid archive contents", err)
	}
	return m, nil
}

// writeArchive writes the copy to a temporary file next to out and renames
// it into place once it is complete and synced.
func (s *ArchiveSigner) writeArchive(ctx context.Context, out, comment string, entries []*zip.File, manifestData []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(out), ".modl-signer-*.tmp")
	if err != nil {
		return newSigningError(ErrKindArchiveWrite, "", "failed to create temporary file", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, f := range entries {
		if cerr := ctx.Err(); cerr != nil {
			return newSigningError(ErrKindCanceled, f.Name, "signing canceled", cerr)
		}
		if cerr := zw.Copy(f); cerr != nil {
			return newSigningError(ErrKindArchiveWrite, f.Name, "failed to copy entry", cerr)
		}
	}

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     manifest.FileName,
		Method:   zip.Deflate,
		Modified: ManifestModTime,
	})
	if err != nil {
		return newSigningError(ErrKindArchiveWrite, manifest.FileName, "failed to add manifest", err)
	}
	if _, err = bytes.NewReader(manifestData).WriteTo(w); err != nil {
		return newSigningError(ErrKindArchiveWrite, manifest.FileName, "failed to write manifest", err)
	}
	if comment != "" {
		if err = zw.SetComment(comment); err != nil {
			return newSigningError(ErrKindArchiveWrite, "", "failed to set archive comment", err)
		}
	}
	if err = zw.Close(); err != nil {
		return newSigningError(ErrKindArchiveWrite, "", "failed to finish archive", err)
	}
	if err = tmp.Sync(); err != nil {
		return newSigningError(ErrKindArchiveWrite, "", "failed to sync archive", err)
	}
	if err = tmp.Close(); err != nil {
		return newSigningError(ErrKindArchiveWrite, "", "failed to close archive", err)
	}
	if err = ctx.Err(); err != nil {
		return newSigningError(ErrKindCanceled, "", "signing canceled", err)
	}
	if err = os.Rename(tmp.Name(), out); err != nil {
		return newSigningError(ErrKindArchiveWrite, "", fmt.Sprintf("failed to move archive to %s", out), err)
	}
	return nil
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}
