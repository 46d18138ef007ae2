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
	"errors"
	"fmt"
)

// Kind categorizes a key access failure.
type Kind int

const (
	// KindUnknown indicates an unclassified error.
	KindUnknown Kind = iota

	// KindAliasNotFound indicates no key entry exists under the alias.
	KindAliasNotFound

	// KindBadPassword indicates a keystore password, entry password or PIN
	// was rejected.
	KindBadPassword

	// KindUnreadableKeystore indicates the keystore, certificate or provider
	// configuration file is missing, corrupt or in an unsupported format.
	KindUnreadableKeystore

	// KindTokenUnavailable indicates the hardware token could not be reached
	// or the session could not be acquired in time.
	KindTokenUnavailable
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindAliasNotFound:
		return "AliasNotFound"
	case KindBadPassword:
		return "BadPassword"
	case KindUnreadableKeystore:
		return "UnreadableKeystore"
	case KindTokenUnavailable:
		return "TokenUnavailable"
	default:
		return "UnknownError"
	}
}

// KeyAccessError reports a failure to obtain the signing key or its
// certificate chain.
type KeyAccessError struct {
	// Kind categorizes the error for programmatic handling.
	Kind Kind

	// Path is the keystore, certificate or configuration file involved.
	Path string

	// Message is a human-readable description of what went wrong.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *KeyAccessError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("%s: %s (path: %s): %v", e.Kind, e.Message, e.Path, e.Cause)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path: %s)", e.Kind, e.Message, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *KeyAccessError) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, path, message string, cause error) *KeyAccessError {
	return &KeyAccessError{
		Kind:    kind,
		Path:    path,
		Message: message,
		Cause:   cause,
	}
}

// IsKind reports whether err is, or wraps, a KeyAccessError of the given kind.
func IsKind(err error, kind Kind) bool {
	var kae *KeyAccessError
	if errors.As(err, &kae) {
		return kae.Kind == kind
	}
	return false
}

// IsRetryable reports whether retrying may succeed. Only an unavailable
// token qualifies; wrong passwords and missing entries never do.
func IsRetryable(err error) bool {
	return IsKind(err, KindTokenUnavailable)
}
