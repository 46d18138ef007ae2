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

// Package testarchive builds and inspects module archives in tests.
package testarchive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Entry is one archive member. Names ending in "/" are directories.
type Entry struct {
	Name    string
	Content []byte
	Method  uint16
}

// ModTime is the modification time given to every written entry.
var ModTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// Sample returns a typical module layout: a module.xml, a directory, a
// stored jar and a deflated resource.
func Sample() []Entry {
	return []Entry{
		{Name: "module.xml", Content: []byte("<modules><module><id>io.ia.test</id></module></modules>"), Method: zip.Deflate},
		{Name: "lib/", Method: zip.Store},
		{Name: "lib/module-gateway.jar", Content: []byte("PK\x03\x04 jar bytes"), Method: zip.Store},
		{Name: "doc/index.html", Content: []byte("<html>docs</html>"), Method: zip.Deflate},
		{Name: "license.html", Content: []byte("license"), Method: zip.Deflate},
	}
}

// Write creates dir/name containing entries in the given order.
func Write(t testing.TB, dir, name string, entries []Entry) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   e.Method,
			Modified: ModTime,
		})
		if err != nil {
			t.Fatalf("Failed to add %s: %v", e.Name, err)
		}
		if _, err := w.Write(e.Content); err != nil {
			t.Fatalf("Failed to write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to finish archive: %v", err)
	}
	return path
}

// Read returns the entries of an archive in directory order.
func Read(t testing.TB, path string) []Entry {
	t.Helper()

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer r.Close()

	entries := make([]Entry, 0, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("Failed to read %s: %v", f.Name, err)
		}
		entries = append(entries, Entry{Name: f.Name, Content: data, Method: f.Method})
	}
	return entries
}

// Lookup returns the content of the named entry.
func Lookup(entries []Entry, name string) ([]byte, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e.Content, true
		}
	}
	return nil, false
}
