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
	"fmt"
	"sort"

	"github.com/ia-sdk/modl-signer/pkg/utils"
)

// Backend identifies which keystore holds the signing key.
type Backend int

const (
	// BackendFile is a password-protected keystore file.
	BackendFile Backend = iota + 1
	// BackendPKCS11 is a token reached through a PKCS#11 provider.
	BackendPKCS11
)

// String returns the name of the backend.
func (b Backend) String() string {
	switch b {
	case BackendFile:
		return "file"
	case BackendPKCS11:
		return "pkcs11"
	default:
		return "unknown"
	}
}

// SigningConfig is a validated signing configuration. It can only be
// obtained from Resolve and is immutable.
//
// Exactly one of KeystoreFile and PKCS11CfgFile is set, and every field the
// selected backend requires is non-empty.
type SigningConfig struct {
	values  map[Field]string
	origins map[Field]Origin
}

func (c *SigningConfig) get(f Field) string {
	if c == nil {
		return ""
	}
	return c.values[f]
}

// CertAlias returns the alias of the signing entry.
func (c *SigningConfig) CertAlias() string { return c.get(FieldCertAlias) }

// CertFile returns the certificate file path.
func (c *SigningConfig) CertFile() string { return c.get(FieldCertFile) }

// CertPassword returns the key entry password (the token PIN for PKCS#11).
func (c *SigningConfig) CertPassword() string { return c.get(FieldCertPassword) }

// KeystoreFile returns the keystore file path, or "" for PKCS#11.
func (c *SigningConfig) KeystoreFile() string { return c.get(FieldKeystoreFile) }

// KeystorePassword returns the keystore password, or "" for PKCS#11.
func (c *SigningConfig) KeystorePassword() string { return c.get(FieldKeystorePassword) }

// PKCS11CfgFile returns the PKCS#11 configuration file path, or "" for a
// file keystore.
func (c *SigningConfig) PKCS11CfgFile() string { return c.get(FieldPKCS11CfgFile) }

// Backend reports which keystore backend was selected.
func (c *SigningConfig) Backend() Backend {
	if c.PKCS11CfgFile() != "" {
		return BackendPKCS11
	}
	return BackendFile
}

// Origin reports which source supplied a field's value.
func (c *SigningConfig) Origin(f Field) (Origin, bool) {
	if c == nil {
		return 0, false
	}
	o, ok := c.origins[f]
	return o, ok
}

// RelativeTo returns a copy in which relative file locations (certFile,
// keystoreFile, pkcs11CfgFile) are resolved against dir. Absolute paths and
// an empty dir leave the values unchanged.
func (c *SigningConfig) RelativeTo(dir string) *SigningConfig {
	if c == nil {
		return nil
	}
	out := &SigningConfig{
		values:  make(map[Field]string, len(c.values)),
		origins: make(map[Field]Origin, len(c.origins)),
	}
	for f, v := range c.values {
		if f.IsPath() {
			v = utils.ResolvePath(dir, v)
		}
		out.values[f] = v
	}
	for f, o := range c.origins {
		out.origins[f] = o
	}
	return out
}

// String renders the configuration with secrets redacted.
func (c *SigningConfig) String() string {
	if c == nil {
		return "SigningConfig(nil)"
	}
	out := "SigningConfig{"
	first := true
	for _, f := range Fields {
		v, ok := c.values[f]
		if !ok {
			continue
		}
		if f.Secret() {
			v = "******"
		}
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%s=%s (%s)", f.Name(), v, c.origins[f])
	}
	return out + "}"
}

// GoString keeps secrets out of %#v output.
func (c *SigningConfig) GoString() string {
	return c.String()
}

// Resolve merges the given sources and validates the result.
//
// For each field the value comes from the highest-ranked source that
// defines it (command line over properties file); among sources of equal
// rank the later one wins. All problems are collected; on failure the
// returned error is a *ValidationReport. Resolve performs no I/O.
func Resolve(sources ...RawCredentialSet) (*SigningConfig, error) {
	values, origins := merge(sources)

	report := &ValidationReport{}
	present := func(f Field) bool { return values[f] != "" }

	for _, f := range Fields {
		if required(f, present) && !present(f) {
			report.add(newMissingFieldError(f))
		}
	}

	switch {
	case present(FieldKeystoreFile) && present(FieldPKCS11CfgFile):
		report.add(newExclusiveSourcesError())
	case !present(FieldKeystoreFile) && !present(FieldPKCS11CfgFile):
		report.add(newNoKeystoreSourceError())
	}

	if !report.Empty() {
		return nil, report
	}

	// A PKCS#11 token is unlocked with the certificate password; a keystore
	// password given alongside it has no meaning and is dropped.
	if present(FieldPKCS11CfgFile) {
		delete(values, FieldKeystorePassword)
		delete(origins, FieldKeystorePassword)
	}

	return &SigningConfig{values: values, origins: origins}, nil
}

// required reports whether f must be present given what else resolved.
func required(f Field, present func(Field) bool) bool {
	switch f {
	case FieldCertAlias, FieldCertFile, FieldCertPassword:
		return true
	case FieldKeystorePassword:
		// Needed to open a keystore file. With no keystore source at all the
		// file keystore is assumed, so it is reported as well.
		return present(FieldKeystoreFile) || !present(FieldPKCS11CfgFile)
	default:
		return false
	}
}

// merge folds the sources from lowest to highest rank so that later writes
// win, field by field.
func merge(sources []RawCredentialSet) (map[Field]string, map[Field]Origin) {
	ordered := make([]RawCredentialSet, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Origin().Rank() < ordered[j].Origin().Rank()
	})

	values := make(map[Field]string, len(Fields))
	origins := make(map[Field]Origin, len(Fields))
	for _, src := range ordered {
		for _, f := range Fields {
			v, ok := src.Get(f)
			if !ok {
				continue
			}
			values[f] = v
			origins[f] = src.Origin()
		}
	}
	return values, origins
}
