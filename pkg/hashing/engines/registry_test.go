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

package hashengines_test

import (
	"testing"

	hashengines "github.com/ia-sdk/modl-signer/pkg/hashing/engines"
	"github.com/ia-sdk/modl-signer/pkg/hashing/engines/memory"
)

func TestCreate(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		wantErr   bool
	}{
		{"sha256", memory.SHA256, false},
		{"sha384", memory.SHA384, false},
		{"sha512", memory.SHA512, false},
		{"blake2b", memory.BLAKE2b512, false},
		{"unsupported", "MD5", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := hashengines.Create(tt.algorithm)
			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && engine.DigestName() != tt.algorithm {
				t.Errorf("DigestName() = %q, want %q", engine.DigestName(), tt.algorithm)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	factory := func() (hashengines.StreamingHashEngine, error) {
		return memory.NewSHA256(nil)
	}

	if err := hashengines.Register("test-algo", factory); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer func() { _ = hashengines.Unregister("test-algo") }()

	if !hashengines.IsSupported("test-algo") {
		t.Error("IsSupported() = false after Register()")
	}
	if err := hashengines.Register("test-algo", factory); err == nil {
		t.Error("Register() should reject duplicates")
	}
	if err := hashengines.Register("", factory); err == nil {
		t.Error("Register() should reject empty names")
	}
	if err := hashengines.Register("nil-factory", nil); err == nil {
		t.Error("Register() should reject nil factories")
	}
}

func TestUnregister_Unknown(t *testing.T) {
	if err := hashengines.Unregister("never-registered"); err == nil {
		t.Error("Unregister() should fail for unknown algorithms")
	}
}

func TestGenericHashEngine_ResetAndRecompute(t *testing.T) {
	const want = "88d4266fd4e6338d13b845fcf289579d209c897823b9217da3e161936f031589"

	h, err := memory.NewSHA256([]byte("junk"))
	if err != nil {
		t.Fatalf("NewSHA256() error = %v", err)
	}
	h.Reset(nil)
	h.Update([]byte("ab"))
	h.Update([]byte("cd"))

	d, err := h.Compute()
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if d.Hex() != want {
		t.Errorf("Compute() = %q, want %q", d.Hex(), want)
	}
	if h.DigestSize() != d.Size() {
		t.Errorf("DigestSize() = %d, Size() = %d", h.DigestSize(), d.Size())
	}
}
