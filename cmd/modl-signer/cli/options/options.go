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

package options

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ia-sdk/modl-signer/pkg/config"
	"github.com/ia-sdk/modl-signer/pkg/hashing"
	hashengines "github.com/ia-sdk/modl-signer/pkg/hashing/engines"
	"github.com/ia-sdk/modl-signer/pkg/keystore"
	"github.com/ia-sdk/modl-signer/pkg/signing"
)

// SignOptions are the flags of the sign command.
type SignOptions struct {
	ModuleName     string        // --module-name
	OutputDir      string        // --output-dir
	ProjectDir     string        // --project-dir
	PropertiesFile string        // --properties
	TokenTimeout   time.Duration // --token-timeout
	HashAlgorithm  string        // --hash-algorithm

	signingFlags *config.FlagSet
}

var _ FlagAdder = (*SignOptions)(nil)

// SignEnvFlags lists the sign flags that may come from the environment.
var SignEnvFlags = []string{"token-timeout", "hash-algorithm"}

func (o *SignOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.ModuleName, "module-name", "",
		"Display name of the module; the signed file is named after it. Defaults to the archive name without '-unsigned'.")
	cmd.Flags().StringVar(&o.OutputDir, "output-dir", "",
		"Directory for the signed archive. Defaults to the directory of the unsigned archive.")
	_ = cmd.MarkFlagDirname("output-dir")
	cmd.Flags().StringVar(&o.ProjectDir, "project-dir", ".",
		"Project directory; relative signing file locations and gradle.properties are resolved against it.")
	_ = cmd.MarkFlagDirname("project-dir")
	cmd.Flags().StringVar(&o.PropertiesFile, "properties", "",
		"Properties file holding ignition.signing.* values. Defaults to <project-dir>/gradle.properties.")
	_ = cmd.MarkFlagFilename("properties", "properties")
	cmd.Flags().DurationVar(&o.TokenTimeout, "token-timeout", keystore.DefaultTokenTimeout,
		"Maximum time to wait for a PKCS#11 token session.")
	cmd.Flags().StringVar(&o.HashAlgorithm, "hash-algorithm", hashing.DefaultAlgorithm,
		"Digest algorithm for archive entries ("+strings.Join(hashengines.SupportedAlgorithms(), ", ")+").")

	o.signingFlags = config.AddFlags(cmd.Flags())
}

// ToStandardOptions converts CLI options to library options.
func (o *SignOptions) ToStandardOptions(unsignedArchive string) signing.ModuleSignerOptions {
	name := o.ModuleName
	if name == "" {
		name = ModuleNameFromArchive(unsignedArchive)
	}
	return signing.ModuleSignerOptions{
		UnsignedArchive: unsignedArchive,
		ModuleName:      name,
		OutputDir:       o.OutputDir,
		ProjectDir:      o.ProjectDir,
		PropertiesFile:  o.PropertiesFile,
		Credentials:     o.signingFlags.Credentials(),
		TokenTimeout:    o.TokenTimeout,
		HashAlgorithm:   o.HashAlgorithm,
	}
}

// ModuleNameFromArchive derives a module name from an archive file name,
// e.g. "build/My-Module-unsigned.modl" gives "My-Module".
func ModuleNameFromArchive(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, signing.ModuleExtension)
	return strings.TrimSuffix(base, "-unsigned")
}

// VerifyOptions are the flags of the verify command.
type VerifyOptions struct {
	RootsFile string // --roots
	SkipChain bool   // --skip-chain
}

var _ FlagAdder = (*VerifyOptions)(nil)

func (o *VerifyOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.RootsFile, "roots", "",
		"PEM or DER file of trusted root certificates. Defaults to the system roots.")
	_ = cmd.MarkFlagFilename("roots", "pem", "crt", "cer", "der")
	cmd.Flags().BoolVar(&o.SkipChain, "skip-chain", false,
		"Check entry signatures against the embedded certificate without validating its chain.")
	cmd.MarkFlagsMutuallyExclusive("roots", "skip-chain")
}
