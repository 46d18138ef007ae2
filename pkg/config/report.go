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

package config

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// PropertiesFileName is the file name used in remediation messages.
const PropertiesFileName = "gradle.properties"

// ErrorType categorizes a configuration problem.
type ErrorType int

const (
	// ErrTypeMissingField indicates a required field has no value in any source.
	ErrTypeMissingField ErrorType = iota
	// ErrTypeExclusiveSources indicates both keystore sources were given.
	ErrTypeExclusiveSources
	// ErrTypeNoKeystoreSource indicates neither keystore source was given.
	ErrTypeNoKeystoreSource
)

// String returns a human-readable name for the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeMissingField:
		return "MissingField"
	case ErrTypeExclusiveSources:
		return "ExclusiveSources"
	case ErrTypeNoKeystoreSource:
		return "NoKeystoreSource"
	default:
		return "Unknown"
	}
}

// ConfigurationError is a single, self-contained validation failure. Its
// message always names both the flag and the property key that fix it.
type ConfigurationError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType
	// Fields are the fields involved, in canonical order.
	Fields []Field
	// Message is the remediation text shown to the user.
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return e.Message
}

func newMissingFieldError(f Field) *ConfigurationError {
	return &ConfigurationError{
		Type:   ErrTypeMissingField,
		Fields: []Field{f},
		Message: fmt.Sprintf("Required %s not found.  Specify via flag '%s=<value>', or in %s file as '%s=<value>'",
			f.HumanName(), f.Flag(), PropertiesFileName, f.PropertyKey()),
	}
}

// keystoreChoice renders the two keystore options, e.g.
// "'--keystoreFile' flag/'ignition.signing.keystoreFile' property in gradle.properties or ...".
func keystoreChoice() string {
	option := func(f Field) string {
		return fmt.Sprintf("'%s' flag/'%s' property in %s", f.Flag(), f.PropertyKey(), PropertiesFileName)
	}
	return option(FieldKeystoreFile) + " or " + option(FieldPKCS11CfgFile)
}

func newExclusiveSourcesError() *ConfigurationError {
	return &ConfigurationError{
		Type:    ErrTypeExclusiveSources,
		Fields:  []Field{FieldKeystoreFile, FieldPKCS11CfgFile},
		Message: "Specify a keystore via either " + keystoreChoice() + " but not both",
	}
}

func newNoKeystoreSourceError() *ConfigurationError {
	return &ConfigurationError{
		Type:    ErrTypeNoKeystoreSource,
		Fields:  []Field{FieldKeystoreFile, FieldPKCS11CfgFile},
		Message: "Required keystore not found.  Specify via either " + keystoreChoice(),
	}
}

// ValidationReport collects every configuration problem found while
// resolving. It is returned as an error by Resolve and renders one message
// per line, in the order the problems were found.
type ValidationReport struct {
	errs error
}

var _ error = (*ValidationReport)(nil)

func (r *ValidationReport) add(e *ConfigurationError) {
	r.errs = multierr.Append(r.errs, e)
}

// Empty reports whether no problems were recorded.
func (r *ValidationReport) Empty() bool {
	return r == nil || r.errs == nil
}

// Errors returns the recorded problems in order.
func (r *ValidationReport) Errors() []*ConfigurationError {
	if r.Empty() {
		return nil
	}
	all := multierr.Errors(r.errs)
	out := make([]*ConfigurationError, 0, len(all))
	for _, err := range all {
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			out = append(out, ce)
		}
	}
	return out
}

// Messages returns each problem's remediation text.
func (r *ValidationReport) Messages() []string {
	errs := r.Errors()
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Message)
	}
	return out
}

// Has reports whether a problem of the given type was recorded.
func (r *ValidationReport) Has(t ErrorType) bool {
	for _, e := range r.Errors() {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Error implements the error interface.
func (r *ValidationReport) Error() string {
	return strings.Join(r.Messages(), "\n")
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (r *ValidationReport) Unwrap() []error {
	if r.Empty() {
		return nil
	}
	return multierr.Errors(r.errs)
}

// IsConfigurationError reports whether err is, or wraps, a configuration
// problem. Such errors are user input errors and must not be retried.
func IsConfigurationError(err error) bool {
	var report *ValidationReport
	if errors.As(err, &report) {
		return true
	}
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
