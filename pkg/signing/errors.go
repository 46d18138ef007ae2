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
	"context"
	"errors"
	"fmt"

	"github.com/ia-sdk/modl-signer/pkg/config"
	"github.com/ia-sdk/modl-signer/pkg/keystore"
)

// ErrorKind categorizes an archive signing failure.
type ErrorKind int

const (
	// ErrKindUnknown indicates an unclassified error.
	ErrKindUnknown ErrorKind = iota

	// ErrKindArchiveRead indicates the unsigned archive could not be read.
	ErrKindArchiveRead

	// ErrKindSign indicates the signing backend failed for an entry.
	ErrKindSign

	// ErrKindArchiveWrite indicates the signed archive could not be written.
	ErrKindArchiveWrite

	// ErrKindCanceled indicates the context was canceled.
	ErrKindCanceled
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindArchiveRead:
		return "ArchiveReadError"
	case ErrKindSign:
		return "SignError"
	case ErrKindArchiveWrite:
		return "ArchiveWriteError"
	case ErrKindCanceled:
		return "Canceled"
	default:
		return "UnknownError"
	}
}

// SigningError reports a failure while signing an archive.
type SigningError struct {
	// Kind categorizes the error for programmatic handling.
	Kind ErrorKind

	// EntryPath is the archive entry being processed, if any.
	EntryPath string

	// Message is a human-readable description of what went wrong.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *SigningError) Error() string {
	if e.EntryPath != "" && e.Cause != nil {
		return fmt.Sprintf("%s: %s (entry: %s): %v", e.Kind, e.Message, e.EntryPath, e.Cause)
	}
	if e.EntryPath != "" {
		return fmt.Sprintf("%s: %s (entry: %s)", e.Kind, e.Message, e.EntryPath)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *SigningError) Unwrap() error {
	return e.Cause
}

func newSigningError(kind ErrorKind, entry, message string, cause error) *SigningError {
	if kind != ErrKindCanceled && (errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded)) {
		kind = ErrKindCanceled
	}
	return &SigningError{
		Kind:      kind,
		EntryPath: entry,
		Message:   message,
		Cause:     cause,
	}
}

// IsKind reports whether err is, or wraps, a SigningError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *SigningError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// IsConfigurationError reports whether err was caused by invalid signing
// configuration. Such failures happen before any key is touched.
func IsConfigurationError(err error) bool {
	return config.IsConfigurationError(err)
}

// IsRetryable reports whether the operation may succeed if repeated without
// changing the input. Only an unavailable token is retryable.
func IsRetryable(err error) bool {
	return keystore.IsRetryable(err)
}
