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

	"github.com/spf13/pflag"
)

var flagUsage = map[Field]string{
	FieldCertAlias:        "Alias of the signing key and certificate entry.",
	FieldKeystorePassword: "Password of the keystore file.",
	FieldCertFile:         "Path to the certificate file (PEM or DER) published with the signature.",
	FieldCertPassword:     "Password of the key entry; the token PIN when using PKCS#11.",
	FieldKeystoreFile:     "Path to a JKS or PKCS#12 keystore file. Exclusive with --pkcs11CfgFile.",
	FieldPKCS11CfgFile:    "Path to a PKCS#11 provider configuration file. Exclusive with --keystoreFile.",
}

// FlagSet binds one command-line flag per signing field. Only flags that
// were actually given on the command line are reported by Credentials.
type FlagSet struct {
	fs     *pflag.FlagSet
	values map[Field]*string
}

// AddFlags registers the signing flags on fs.
func AddFlags(fs *pflag.FlagSet) *FlagSet {
	s := &FlagSet{
		fs:     fs,
		values: make(map[Field]*string, len(Fields)),
	}
	for _, f := range Fields {
		s.values[f] = fs.String(f.Name(), "", flagUsage[f])
	}
	return s
}

// Credentials returns the flags that were set as a RawCredentialSet.
func (s *FlagSet) Credentials() RawCredentialSet {
	set := NewRawCredentialSet(OriginCLI)
	for _, f := range Fields {
		flag := s.fs.Lookup(f.Name())
		if flag == nil || !flag.Changed {
			continue
		}
		set.Set(f, *s.values[f])
	}
	return set
}

// ParseFlags parses args (e.g. "--certFile=cert.pem") into a RawCredentialSet.
// Arguments that are not signing flags are rejected.
func ParseFlags(args []string) (RawCredentialSet, error) {
	fs := pflag.NewFlagSet("signing", pflag.ContinueOnError)
	s := AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		return NewRawCredentialSet(OriginCLI), fmt.Errorf("failed to parse signing flags: %w", err)
	}
	return s.Credentials(), nil
}
