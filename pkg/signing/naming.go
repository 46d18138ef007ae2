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
	"strings"
	"unicode"
)

// ModuleExtension is the file extension of module archives.
const ModuleExtension = ".modl"

// SignedModuleName derives the signed archive file name from a module's
// display name: spaces become hyphens and characters that are unsafe in
// file names are dropped, e.g. "I Was Signed" becomes "I-Was-Signed.modl".
func SignedModuleName(moduleName string) string {
	return fileSafeName(moduleName) + ModuleExtension
}

// UnsignedModuleName is the name of the archive before signing, e.g.
// "I-Was-Signed-unsigned.modl".
func UnsignedModuleName(moduleName string) string {
	return fileSafeName(moduleName) + "-unsigned" + ModuleExtension
}

func fileSafeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune('-')
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || strings.Trim(out, ".") == "" {
		return "module"
	}
	return out
}
