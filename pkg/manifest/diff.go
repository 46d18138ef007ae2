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
	"sort"

	"github.com/ia-sdk/modl-signer/pkg/hashing/digests"
)

// ManifestDiff describes how the entries of an archive differ from the
// records of its manifest.
// nolint:revive
type ManifestDiff struct {
	// ExtraEntries are archive entries with no record.
	ExtraEntries []string

	// MissingEntries are records with no archive entry.
	MissingEntries []string

	// Mismatches are entries whose digest differs from the record.
	Mismatches []HashMismatch
}

// HashMismatch is a single entry with differing digests.
type HashMismatch struct {
	EntryPath    string
	ExpectedHash string
	ActualHash   string
}

// IsEmpty returns true if there are no differences.
func (d *ManifestDiff) IsEmpty() bool {
	return len(d.ExtraEntries) == 0 && len(d.MissingEntries) == 0 && len(d.Mismatches) == 0
}

// ComputeDiff compares digests computed from an archive with the manifest's
// records. All slices are sorted.
func ComputeDiff(actual map[string]digests.Digest, expected *SignatureManifest) *ManifestDiff {
	diff := &ManifestDiff{
		ExtraEntries:   []string{},
		MissingEntries: []string{},
		Mismatches:     []HashMismatch{},
	}

	for path := range actual {
		if _, ok := expected.Record(path); !ok {
			diff.ExtraEntries = append(diff.ExtraEntries, path)
		}
	}
	sort.Strings(diff.ExtraEntries)

	// Records are already sorted by path.
	for _, rec := range expected.records {
		got, ok := actual[rec.EntryPath]
		if !ok {
			diff.MissingEntries = append(diff.MissingEntries, rec.EntryPath)
			continue
		}
		if !got.Equal(rec.Digest) {
			diff.Mismatches = append(diff.Mismatches, HashMismatch{
				EntryPath:    rec.EntryPath,
				ExpectedHash: rec.Digest.String(),
				ActualHash:   got.String(),
			})
		}
	}

	return diff
}
