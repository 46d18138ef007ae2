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

package signing

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ia-sdk/modl-signer/pkg/config"
	"github.com/ia-sdk/modl-signer/pkg/hashing"
	"github.com/ia-sdk/modl-signer/pkg/keystore"
	"github.com/ia-sdk/modl-signer/pkg/logging"
	"github.com/ia-sdk/modl-signer/pkg/manifest"
	"github.com/ia-sdk/modl-signer/pkg/tracing"
	"github.com/ia-sdk/modl-signer/pkg/utils"
)

// Result describes a completed signing run.
type Result struct {
	// SignedArchivePath is the location of the signed module.
	SignedArchivePath string

	// EntryCount is the number of signed archive entries.
	EntryCount int

	// Message is a short human-readable summary.
	Message string
}

//nolint:revive
type ModuleSignerOptions struct {
	// UnsignedArchive is the module archive produced by the packager.
	UnsignedArchive string

	// ModuleName is the module's display name, e.g. "I Was Signed".
	ModuleName string

	// OutputDir receives the signed archive. Defaults to the directory of
	// UnsignedArchive.
	OutputDir string

	// ProjectDir is the base for relative file locations in the signing
	// configuration and for the default properties file. Defaults to the
	// working directory.
	ProjectDir string

	// PropertiesFile overrides <ProjectDir>/gradle.properties. When set
	// explicitly the file must exist.
	PropertiesFile string

	// Credentials are the signing values given on the command line. They
	// take precedence over the properties file.
	Credentials config.RawCredentialSet

	// TokenTimeout bounds PKCS#11 session acquisition.
	TokenTimeout time.Duration

	// HashAlgorithm selects the entry digest. Empty selects SHA-256.
	HashAlgorithm string

	Logger logging.Logger
}

// ModuleSigner runs the whole signing pipeline: resolve the configuration,
// load the key and sign the archive.
type ModuleSigner struct {
	opts    ModuleSignerOptions
	hashing *hashing.Config
}

func NewModuleSigner(opts ModuleSignerOptions) (*ModuleSigner, error) {
	if err := utils.ValidateFileExists("unsigned archive", opts.UnsignedArchive); err != nil {
		return nil, err
	}
	if opts.ModuleName == "" {
		return nil, fmt.Errorf("module name is required")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Dir(opts.UnsignedArchive)
	}
	if err := utils.ValidateFolderExists("output directory", opts.OutputDir); err != nil {
		return nil, err
	}
	if err := utils.ValidateOptionalFolder("project directory", opts.ProjectDir); err != nil {
		return nil, err
	}
	if err := utils.ValidateOptionalFile("properties file", opts.PropertiesFile); err != nil {
		return nil, err
	}
	hc := hashing.NewConfig()
	if opts.HashAlgorithm != "" {
		hc.WithAlgorithm(opts.HashAlgorithm)
	}
	if err := hc.Validate(); err != nil {
		return nil, err
	}

	opts.Logger = logging.EnsureLogger(opts.Logger)
	return &ModuleSigner{opts: opts, hashing: hc}, nil
}

func (ms *ModuleSigner) propertiesFile() string {
	if ms.opts.PropertiesFile != "" {
		return ms.opts.PropertiesFile
	}
	return filepath.Join(ms.opts.ProjectDir, config.PropertiesFileName)
}

// Sign performs the complete signing flow.
//
// The configuration is resolved before any keystore is opened, so an
// invalid configuration never touches key material. The keystore is closed
// on every exit path.
func (ms *ModuleSigner) Sign(ctx context.Context) (Result, error) {
	log := logging.ForRun(ms.opts.Logger, uuid.NewString(), ms.opts.ModuleName)

	var result Result
	attrs := map[string]interface{}{
		"modl.module_name": ms.opts.ModuleName,
		"modl.archive":     ms.opts.UnsignedArchive,
		"modl.hash":        ms.hashing.Algorithm(),
	}
	err := tracing.Run(ctx, "modl.sign", attrs, func(ctx context.Context) error {
		log.Info("Signing %s", filepath.Clean(ms.opts.UnsignedArchive))

		// Step 1: resolve the signing configuration
		cfg, err := ms.resolve(ctx, log)
		if err != nil {
			return err
		}

		// Step 2: load the key
		key, acc, err := ms.loadKey(ctx, log, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := acc.Close(); cerr != nil {
				log.Warn("Failed to close keystore: %v", cerr)
			}
		}()

		// Step 3: sign the archive
		out, m, err := ms.signArchive(ctx, log, key)
		if err != nil {
			return err
		}

		result = Result{
			SignedArchivePath: out,
			EntryCount:        m.Len(),
			Message:           fmt.Sprintf("Signed %d entries with %s", m.Len(), key.Algorithm.Name),
		}
		return nil
	})
	if err != nil {
		return Result{Message: fmt.Sprintf("Signing failed: %v", err)}, err
	}
	log.Info("Signed module written to: %s", result.SignedArchivePath)
	return result, nil
}

func (ms *ModuleSigner) resolve(ctx context.Context, log logging.Logger) (*config.SigningConfig, error) {
	var cfg *config.SigningConfig
	err := tracing.Run(ctx, "modl.resolve", nil, func(context.Context) error {
		props, err := config.LoadPropertiesFile(ms.propertiesFile())
		if err != nil {
			return err
		}
		log.Debug("Read %d signing properties from %s", props.Len(), ms.propertiesFile())

		resolved, err := config.Resolve(props, ms.opts.Credentials)
		if err != nil {
			return err
		}
		cfg = resolved.RelativeTo(ms.opts.ProjectDir)

		log.Debug("  --certAlias:        %s", cfg.CertAlias())
		log.Debug("  --certFile:         %s", cfg.CertFile())
		log.Debug("  --certPassword:     %s", utils.MaskSecret(cfg.CertPassword()))
		log.Debug("  --keystoreFile:     %s", cfg.KeystoreFile())
		log.Debug("  --keystorePassword: %s", utils.MaskSecret(cfg.KeystorePassword()))
		log.Debug("  --pkcs11CfgFile:    %s", cfg.PKCS11CfgFile())
		return nil
	})
	return cfg, err
}

func (ms *ModuleSigner) loadKey(ctx context.Context, log logging.Logger, cfg *config.SigningConfig) (*keystore.SigningKey, keystore.Accessor, error) {
	var (
		key *keystore.SigningKey
		acc keystore.Accessor
	)
	attrs := map[string]interface{}{"modl.backend": cfg.Backend().String()}
	err := tracing.Run(ctx, "modl.keystore.load", attrs, func(ctx context.Context) error {
		a, err := keystore.Open(cfg, keystore.Options{
			TokenTimeout: ms.opts.TokenTimeout,
			Logger:       log.WithField(logging.FieldBackend, cfg.Backend().String()),
		})
		if err != nil {
			return err
		}
		k, err := a.LoadSigningKey(ctx, cfg)
		if err != nil {
			a.Close()
			return err
		}
		key, acc = k, a
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("Loaded %s key %q from %s keystore", key.Algorithm.Name, cfg.CertAlias(), cfg.Backend())
	if hint, err := keystore.ComputeKeyHint(key.Signer.Public()); err == nil {
		log.Debug("Key hint: %s", hint)
	}
	return key, acc, nil
}

func (ms *ModuleSigner) signArchive(ctx context.Context, log logging.Logger, key *keystore.SigningKey) (string, *manifest.SignatureManifest, error) {
	signer, err := NewArchiveSigner(ArchiveSignerOptions{
		OutputDir:  ms.opts.OutputDir,
		ModuleName: ms.opts.ModuleName,
		Hashing:    ms.hashing,
		Logger:     log,
	})
	if err != nil {
		return "", nil, err
	}

	var (
		out string
		m   *manifest.SignatureManifest
	)
	err = tracing.Run(ctx, "modl.archive.sign", map[string]interface{}{"modl.output": signer.OutputPath()}, func(ctx context.Context) error {
		var err error
		out, m, err = signer.sign(ctx, ms.opts.UnsignedArchive, key)
		return err
	})
	return out, m, err
}
