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

// Package config resolves module signing configuration.
//
// Signing properties arrive from two places: a Java-style properties file
// (usually gradle.properties) and command-line flags. Each source is read
// into a RawCredentialSet, and Resolve merges the sets field by field and
// validates the result into a SigningConfig. Validation is exhaustive: every
// problem is reported in a single ValidationReport.
package config

// PropertyPrefix is the namespace every signing property lives under.
const PropertyPrefix = "ignition.signing."

// Field identifies one signing property.
type Field int

const (
	// FieldCertAlias is the alias of the signing key/certificate entry.
	FieldCertAlias Field = iota
	// FieldKeystorePassword unlocks a file-based keystore.
	FieldKeystorePassword
	// FieldCertFile is the certificate (chain) file published with the signature.
	FieldCertFile
	// FieldCertPassword protects the key entry, or is the PIN of a PKCS#11 token.
	FieldCertPassword
	// FieldKeystoreFile is the path of a file-based keystore (JKS or PKCS#12).
	FieldKeystoreFile
	// FieldPKCS11CfgFile is the path of a PKCS#11 provider configuration file.
	FieldPKCS11CfgFile
)

// Fields lists every field in canonical order. Merging and validation walk
// fields in this order, so reports are stable.
var Fields = []Field{
	FieldCertAlias,
	FieldKeystorePassword,
	FieldCertFile,
	FieldCertPassword,
	FieldKeystoreFile,
	FieldPKCS11CfgFile,
}

type fieldDef struct {
	name      string
	humanName string
	secret    bool
	path      bool
}

var fieldDefs = map[Field]fieldDef{
	FieldCertAlias:        {name: "certAlias", humanName: "certificate alias"},
	FieldKeystorePassword: {name: "keystorePassword", humanName: "keystore password", secret: true},
	FieldCertFile:         {name: "certFile", humanName: "certificate file location", path: true},
	FieldCertPassword:     {name: "certPassword", humanName: "certificate password", secret: true},
	FieldKeystoreFile:     {name: "keystoreFile", humanName: "keystore file location", path: true},
	FieldPKCS11CfgFile:    {name: "pkcs11CfgFile", humanName: "PKCS#11 configuration file location", path: true},
}

// Name returns the field's identifier, e.g. "certFile". It is both the flag
// name and the property key suffix.
func (f Field) Name() string {
	return fieldDefs[f].name
}

// HumanName returns the name used in error messages.
func (f Field) HumanName() string {
	return fieldDefs[f].humanName
}

// Flag returns the command-line spelling of the field, e.g. "--certFile".
func (f Field) Flag() string {
	return "--" + f.Name()
}

// PropertyKey returns the properties-file key, e.g. "ignition.signing.certFile".
func (f Field) PropertyKey() string {
	return PropertyPrefix + f.Name()
}

// Secret reports whether values of this field must never be logged.
func (f Field) Secret() bool {
	return fieldDefs[f].secret
}

// IsPath reports whether the field holds a file location.
func (f Field) IsPath() bool {
	return fieldDefs[f].path
}

func (f Field) String() string {
	return f.Name()
}

// FieldByName looks up a field by its identifier. Matching is exact.
func FieldByName(name string) (Field, bool) {
	for _, f := range Fields {
		if f.Name() == name {
			return f, true
		}
	}
	return 0, false
}
