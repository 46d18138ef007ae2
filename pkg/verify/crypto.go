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

package verify

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"

	sigstoresig "github.com/sigstore/sigstore/pkg/signature"

	"github.com/ia-sdk/modl-signer/pkg/keystore"
)

// CreateSignatureVerifier returns a verifier for signatures made by
// keystore.SigningKey.Sign with a key of the given algorithm. The verifier
// is fed the entry digest bytes and applies the algorithm's hash itself.
func CreateSignatureVerifier(pubKey crypto.PublicKey, alg keystore.Algorithm) (sigstoresig.Verifier, error) {
	switch k := pubKey.(type) {
	case *ecdsa.PublicKey:
		return sigstoresig.LoadECDSAVerifier(k, alg.Hash)
	case *rsa.PublicKey:
		return sigstoresig.LoadRSAPKCS1v15Verifier(k, alg.Hash)
	case ed25519.PublicKey:
		return sigstoresig.LoadED25519phVerifier(k)
	default:
		return nil, fmt.Errorf("unsupported public key type: %T", pubKey)
	}
}
