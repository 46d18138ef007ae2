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
	"errors"

	"github.com/ia-sdk/modl-signer/pkg/config"
)

// Exit codes returned by the binary.
const (
	ExitFailure       = 1
	ExitConfiguration = 2
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode implements the ExitCoder interface checked by main.
func (e *ExitError) ExitCode() int { return e.Code }

// withExitCode maps a signing or verification failure to its exit code:
// configuration problems exit with 2, everything else with 1.
func withExitCode(err error) error {
	if err == nil {
		return nil
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return err
	}
	code := ExitFailure
	if config.IsConfigurationError(err) {
		code = ExitConfiguration
	}
	return &ExitError{Err: err, Code: code}
}
