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

import "testing"

func TestSignedModuleName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"I Was Signed", "I-Was-Signed.modl"},
		{"Perspective", "Perspective.modl"},
		{"  Padded Name  ", "Padded-Name.modl"},
		{"a/b\\c:d", "abcd.modl"},
		{"What?*", "What.modl"},
		{"", "module.modl"},
		{"..", "module.modl"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SignedModuleName(tt.in); got != tt.want {
				t.Errorf("SignedModuleName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnsignedModuleName(t *testing.T) {
	if got, want := UnsignedModuleName("I Was Signed"), "I-Was-Signed-unsigned.modl"; got != want {
		t.Errorf("UnsignedModuleName() = %q, want %q", got, want)
	}
}
