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

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ia-sdk/modl-signer/cmd/modl-signer/cli/options"
	"github.com/ia-sdk/modl-signer/pkg/signing"
)

func Sign(ro *options.RootOptions) *cobra.Command {
	o := &options.SignOptions{}

	long := `Sign a module archive.

Every entry of UNSIGNED_ARCHIVE is digested and signed; the signatures and the
certificate chain are written to signatures.properties inside a copy of the
archive named after --module-name (spaces become hyphens), e.g.
"I Was Signed" produces I-Was-Signed.modl.

Signing values come from flags or from ignition.signing.* keys in
gradle.properties; flags win. Exactly one key source must be configured:

  --keystoreFile    a JKS or PKCS#12 keystore (needs --keystorePassword)
  --pkcs11CfgFile   a PKCS#11 provider configuration (--certPassword is the PIN)

--certAlias, --certFile and --certPassword are always required.`

	cmd := &cobra.Command{
		Use:   "sign [OPTIONS] UNSIGNED_ARCHIVE",
		Short: "Sign a module archive.",
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := options.ApplyEnv(cmd.Flags(), options.SignEnvFlags...); err != nil {
				return err
			}

			opts := o.ToStandardOptions(args[0])
			opts.Logger = ro.NewObservability().Logger

			signer, err := signing.NewModuleSigner(opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), ro.Timeout)
			defer cancel()

			result, err := signer.Sign(ctx)
			if err != nil {
				return withExitCode(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.SignedArchivePath)
			return nil
		},
	}

	o.AddFlags(cmd)
	return cmd
}
