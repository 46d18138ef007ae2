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

package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	protocommon "github.com/sigstore/protobuf-specs/gen/pb-go/common/v1"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
	sigstoresig "github.com/sigstore/sigstore/pkg/signature"
)

// Algorithm describes how a signing key signs archive entries.
type Algorithm struct {
	// Name is the signature algorithm recorded in manifests, e.g.
	// "SHA256withRSA".
	Name string

	// Details identifies the key type and hash.
	Details protocommon.PublicKeyDetails

	// Hash is applied to each entry digest before signing.
	Hash crypto.Hash
}

var algorithmNames = map[protocommon.PublicKeyDetails]string{
	protocommon.PublicKeyDetails_PKIX_ECDSA_P256_SHA_256:       "SHA256withECDSA",
	protocommon.PublicKeyDetails_PKIX_ECDSA_P384_SHA_384:       "SHA384withECDSA",
	protocommon.PublicKeyDetails_PKIX_RSA_PKCS1V15_2048_SHA256: "SHA256withRSA",
	protocommon.PublicKeyDetails_PKIX_RSA_PKCS1V15_3072_SHA256: "SHA256withRSA",
	protocommon.PublicKeyDetails_PKIX_RSA_PKCS1V15_4096_SHA256: "SHA256withRSA",
	protocommon.PublicKeyDetails_PKIX_ED25519_PH:               "Ed25519ph",
}

// GetPublicKeyDetails maps a public key to its PublicKeyDetails. ECDSA
// P-256 and P-384, RSA and Ed25519 keys are supported. RSA always uses
// PKCS#1 v1.5 so that signatures are reproducible.
func GetPublicKeyDetails(pubKey crypto.PublicKey) (protocommon.PublicKeyDetails, error) {
	switch k := pubKey.(type) {
	case *ecdsa.PublicKey:
		switch k.Curve {
		case elliptic.P256():
			return protocommon.PublicKeyDetails_PKIX_ECDSA_P256_SHA_256, nil
		case elliptic.P384():
			return protocommon.PublicKeyDetails_PKIX_ECDSA_P384_SHA_384, nil
		default:
			return 0, fmt.Errorf("unsupported ECDSA curve: %s", k.Curve.Params().Name)
		}
	case *rsa.PublicKey:
		bitSize := k.N.BitLen()
		switch {
		case bitSize < 2048:
			return 0, fmt.Errorf("RSA key too small: %d bits", bitSize)
		case bitSize <= 2048:
			return protocommon.PublicKeyDetails_PKIX_RSA_PKCS1V15_2048_SHA256, nil
		case bitSize <= 3072:
			return protocommon.PublicKeyDetails_PKIX_RSA_PKCS1V15_3072_SHA256, nil
		default:
			return protocommon.PublicKeyDetails_PKIX_RSA_PKCS1V15_4096_SHA256, nil
		}
	case ed25519.PublicKey:
		return protocommon.PublicKeyDetails_PKIX_ED25519_PH, nil
	default:
		return 0, fmt.Errorf("unsupported key type: %T", pubKey)
	}
}

// AlgorithmFor returns the signing algorithm for a public key.
func AlgorithmFor(pubKey crypto.PublicKey) (Algorithm, error) {
	details, err := GetPublicKeyDetails(pubKey)
	if err != nil {
		return Algorithm{}, err
	}
	algDetails, err := sigstoresig.GetAlgorithmDetails(details)
	if err != nil {
		return Algorithm{}, fmt.Errorf("failed to get algorithm details: %w", err)
	}
	return Algorithm{
		Name:    algorithmNames[details],
		Details: details,
		Hash:    algDetails.GetHashType(),
	}, nil
}

// AlgorithmByName looks up the PublicKeyDetails candidates for a manifest
// algorithm name.
func AlgorithmByName(name string) []protocommon.PublicKeyDetails {
	var out []protocommon.PublicKeyDetails
	for d, n := range algorithmNames {
		if n == name {
			out = append(out, d)
		}
	}
	return out
}

// ComputeKeyHint returns the hex SHA-256 of the PEM-encoded public key. It
// identifies a key in logs without revealing anything sensitive.
func ComputeKeyHint(pubKey crypto.PublicKey) (string, error) {
	pubKeyPEM, err := cryptoutils.MarshalPublicKeyToPEM(pubKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key to PEM: %w", err)
	}

	hashedBytes := sha256.Sum256(pubKeyPEM)
	return hex.EncodeToString(hashedBytes[:]), nil
}
