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
	"github.com/ia-sdk/modl-signer/pkg/utils"
	"github.com/ia-sdk/modl-signer/pkg/verify"
)

func Verify(ro *options.RootOptions) *cobra.Command {
	o := &options.VerifyOptions{}

	long := `Verify a signed module archive.

Checks that every entry of SIGNED_ARCHIVE is listed in its signatures.properties
with a matching digest, that each signature verifies with the embedded signing
certificate, and that the certificate chain leads to a trusted root (--roots,
or the system roots when omitted).`

	cmd := &cobra.Command{
		Use:   "verify [OPTIONS] SIGNED_ARCHIVE",
		Short: "Verify a signed module archive.",
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.ValidateFileExists("signed archive", args[0]); err != nil {
				return err
			}
			vo := verify.Options{
				SkipChain: o.SkipChain,
				Logger:    ro.NewObservability().Logger,
			}
			if o.RootsFile != "" {
				roots, err := verify.LoadRoots(o.RootsFile)
				if err != nil {
					return err
				}
				vo.Roots = roots
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), ro.Timeout)
			defer cancel()

			result, err := verify.Archive(ctx, args[0], vo)
			if err != nil {
				return withExitCode(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}

	o.AddFlags(cmd)
	return cmd
}
