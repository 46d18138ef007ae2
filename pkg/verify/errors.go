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
	"errors"
	"fmt"
)

// ErrorType represents the category of verification error.
type ErrorType int

const (
	// ErrTypeUnknown indicates an unclassified error.
	ErrTypeUnknown ErrorType = iota

	// ErrTypeSignatureInvalid indicates an entry signature does not verify.
	ErrTypeSignatureInvalid

	// ErrTypeManifestMismatch indicates the archive entries don't match the
	// signature manifest.
	ErrTypeManifestMismatch

	// ErrTypeInvalidFormat indicates a missing or malformed manifest.
	ErrTypeInvalidFormat

	// ErrTypeIO indicates the archive could not be read.
	ErrTypeIO

	// ErrTypeUntrustedChain indicates the certificate chain does not lead to
	// a trusted root.
	ErrTypeUntrustedChain
)

// String returns a human-readable name for the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeSignatureInvalid:
		return "InvalidSignature"
	case ErrTypeManifestMismatch:
		return "ManifestMismatch"
	case ErrTypeInvalidFormat:
		return "InvalidFormat"
	case ErrTypeIO:
		return "IOError"
	case ErrTypeUntrustedChain:
		return "UntrustedChain"
	default:
		return "UnknownError"
	}
}

// VerificationError is a structured error type for verification failures.
//
//	var verifyErr *VerificationError
//	if errors.As(err, &verifyErr) {
//	    log.Printf("type=%s entry=%s", verifyErr.Type, verifyErr.Path)
//	}
type VerificationError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType

	// Path is the archive entry involved, if any.
	Path string

	// Message is a human-readable description of what went wrong.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("%s: %s (path: %s): %v", e.Type, e.Message, e.Path, e.Cause)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path: %s)", e.Type, e.Message, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for error chain unwrapping.
func (e *VerificationError) Unwrap() error {
	return e.Cause
}

// NewVerificationError creates a new verification error.
func NewVerificationError(errType ErrorType, message string, cause error) *VerificationError {
	return &VerificationError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// NewVerificationErrorWithPath creates a new verification error with an
// entry path.
func NewVerificationErrorWithPath(errType ErrorType, path, message string, cause error) *VerificationError {
	return &VerificationError{
		Type:    errType,
		Path:    path,
		Message: message,
		Cause:   cause,
	}
}

// IsType checks if an error is, or wraps, a VerificationError of a specific
// type.
func IsType(err error, errType ErrorType) bool {
	var verifyErr *VerificationError
	if errors.As(err, &verifyErr) {
		return verifyErr.Type == errType
	}
	return false
}
