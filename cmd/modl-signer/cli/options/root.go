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

// Package options defines the command-line options of the modl-signer CLI.
package options

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ia-sdk/modl-signer/pkg/logging"
)

// EnvPrefix is the prefix of environment variables that configure the CLI.
// Signing credentials are never read from the environment.
const EnvPrefix = "MODL_SIGNER"

// DefaultTimeout bounds a whole command.
const DefaultTimeout = 3 * time.Minute

// FlagAdder is implemented by any flag group that can register itself to a
// cobra command.
type FlagAdder interface {
	AddFlags(cmd *cobra.Command)
}

// RootOptions are available to every subcommand.
type RootOptions struct {
	// OutputFile receives log output and results instead of the terminal.
	OutputFile string
	// LogLevel sets the minimum log level (debug, info, warn, error, silent).
	LogLevel string
	// LogFormat sets the log output format (text, json).
	LogFormat string
	// Timeout bounds command execution.
	Timeout time.Duration

	logOutput io.Writer
}

var _ FlagAdder = (*RootOptions)(nil)

// AddFlags adds the persistent root flags.
func (o *RootOptions) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&o.OutputFile, "output-file", "",
		"write output to a file")
	_ = cmd.MarkPersistentFlagFilename("output-file", "log", "txt")

	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", "info",
		"set the minimum log level (debug, info, warn, error, silent)")

	cmd.PersistentFlags().StringVar(&o.LogFormat, "log-format", "text",
		"set the log output format (text, json)")

	cmd.PersistentFlags().DurationVarP(&o.Timeout, "timeout", "t", DefaultTimeout,
		"timeout for commands")
}

// SetLogOutput redirects log output, e.g. to --output-file.
func (o *RootOptions) SetLogOutput(w io.Writer) {
	o.logOutput = w
}

// GetLogLevel returns the effective log level.
func (o *RootOptions) GetLogLevel() logging.LogLevel {
	return logging.ParseLogLevel(o.LogLevel)
}

// GetLogFormat returns the log format.
func (o *RootOptions) GetLogFormat() logging.LogFormat {
	return logging.ParseLogFormat(o.LogFormat)
}

// NewLogger creates a logger from the root options.
func (o *RootOptions) NewLogger() logging.Logger {
	return logging.NewLoggerWithOptions(logging.LoggerOptions{
		Level:  o.GetLogLevel(),
		Format: o.GetLogFormat(),
		Output: o.logOutput,
	})
}

// ApplyEnv fills flags that were not given on the command line from
// MODL_SIGNER_* environment variables, e.g. MODL_SIGNER_LOG_LEVEL for
// --log-level. Only the named flags are considered.
func ApplyEnv(fs *pflag.FlagSet, names ...string) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if err := v.BindPFlag(name, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
		if !v.IsSet(name) {
			continue
		}
		val := v.GetString(name)
		if val == f.Value.String() {
			continue
		}
		if err := fs.Set(name, val); err != nil {
			return fmt.Errorf("invalid value %q for %s_%s: %w",
				val, EnvPrefix, strings.ToUpper(strings.ReplaceAll(name, "-", "_")), err)
		}
	}
	return nil
}
