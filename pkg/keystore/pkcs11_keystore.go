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

package keystore

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ThalesGroup/crypto11"
	"github.com/miekg/pkcs11"

	"github.com/ia-sdk/modl-signer/pkg/config"
)

// Pkcs11Keystore reads the signing key from a token through a PKCS#11
// provider library. The certificate password is the token PIN.
type Pkcs11Keystore struct {
	opts Options
	open func(*Pkcs11Config, *config.SigningConfig) tokenResult

	mu     sync.Mutex
	ctx    *crypto11.Context
	closed bool
}

var _ Accessor = (*Pkcs11Keystore)(nil)

func newPkcs11Keystore(opts Options) *Pkcs11Keystore {
	k := &Pkcs11Keystore{opts: opts}
	k.open = k.openToken
	return k
}

func (*Pkcs11Keystore) sealed() {}

type tokenResult struct {
	c11 *crypto11.Context
	key *SigningKey
	err error
}

// LoadSigningKey logs in to the configured token and finds the key pair
// labelled cfg.CertAlias(). Session acquisition is bounded by the token
// timeout and ctx.
func (k *Pkcs11Keystore) LoadSigningKey(ctx context.Context, cfg *config.SigningConfig) (*SigningKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, fmt.Errorf("keystore is closed")
	}
	if k.ctx != nil {
		return nil, fmt.Errorf("a token session is already open")
	}

	cfgPath := cfg.PKCS11CfgFile()
	pcfg, err := LoadPkcs11Config(cfgPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(pcfg.Library); err != nil {
		return nil, newError(KindUnreadableKeystore, pcfg.Library, "PKCS#11 library not found", err)
	}
	k.opts.Logger.Debug("Opening PKCS#11 token via %s", pcfg.Library)

	ctx, cancel := context.WithTimeout(ctx, k.opts.TokenTimeout)
	defer cancel()

	results := make(chan tokenResult, 1)
	go func() {
		results <- k.open(pcfg, cfg)
	}()

	select {
	case r := <-results:
		if r.err != nil {
			return nil, r.err
		}
		k.ctx = r.c11
		return r.key, nil
	case <-ctx.Done():
		// The provider call cannot be interrupted; release its session
		// whenever it returns.
		go func() {
			if r := <-results; r.c11 != nil {
				_ = r.c11.Close()
			}
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(KindTokenUnavailable, cfgPath,
				fmt.Sprintf("timed out after %s waiting for the token", k.opts.TokenTimeout), ctx.Err())
		}
		return nil, ctx.Err()
	}
}

func (k *Pkcs11Keystore) openToken(pcfg *Pkcs11Config, cfg *config.SigningConfig) tokenResult {
	path := cfg.PKCS11CfgFile()

	c11cfg := &crypto11.Config{
		Path:            pcfg.Library,
		TokenLabel:      pcfg.TokenLabel,
		TokenSerial:     pcfg.TokenSerial,
		SlotNumber:      pcfg.Slot,
		Pin:             cfg.CertPassword(),
		PoolWaitTimeout: k.opts.TokenTimeout,
	}
	if pcfg.TokenLabel == "" && pcfg.TokenSerial == "" && pcfg.Slot == nil {
		index := 0
		if pcfg.SlotListIndex != nil {
			index = *pcfg.SlotListIndex
		}
		slot, err := resolveSlotListIndex(pcfg.Library, index)
		if err != nil {
			return tokenResult{err: newError(KindTokenUnavailable, path, "failed to resolve slotListIndex", err)}
		}
		c11cfg.SlotNumber = &slot
	}

	c11, err := crypto11.Configure(c11cfg)
	if err != nil {
		return tokenResult{err: newError(classifyTokenError(err), path, "failed to log in to token", err)}
	}

	key, err := findKey(c11, cfg)
	if err != nil {
		_ = c11.Close()
		return tokenResult{err: err}
	}
	return tokenResult{c11: c11, key: key}
}

func findKey(c11 *crypto11.Context, cfg *config.SigningConfig) (*SigningKey, error) {
	alias := cfg.CertAlias()
	signer, err := c11.FindKeyPair(nil, []byte(alias))
	if err != nil {
		return nil, newError(classifyTokenError(err), cfg.PKCS11CfgFile(), "failed to search the token", err)
	}
	if signer == nil {
		return nil, newError(KindAliasNotFound, cfg.PKCS11CfgFile(),
			fmt.Sprintf("no key pair labelled %q on the token", alias), nil)
	}

	var backendChain []*x509.Certificate
	cert, err := c11.FindCertificate(nil, []byte(alias), nil)
	if err == nil && cert != nil {
		backendChain = append(backendChain, cert)
	}

	return finishKey(signer, cfg, backendChain)
}

// resolveSlotListIndex maps a position in the list of slots with a token
// present to a slot ID.
func resolveSlotListIndex(library string, index int) (int, error) {
	p := pkcs11.New(library)
	if p == nil {
		return 0, fmt.Errorf("failed to load PKCS#11 library %s", library)
	}
	defer p.Destroy()

	if err := p.Initialize(); err != nil {
		var perr pkcs11.Error
		if !errors.As(err, &perr) || perr != pkcs11.CKR_CRYPTOKI_ALREADY_INITIALIZED {
			return 0, err
		}
	}
	defer func() { _ = p.Finalize() }()

	slots, err := p.GetSlotList(true)
	if err != nil {
		return 0, err
	}
	if index >= len(slots) {
		return 0, fmt.Errorf("slotListIndex %d out of range: %d slot(s) with a token present", index, len(slots))
	}
	return int(slots[index]), nil
}

var pinErrors = []pkcs11.Error{
	pkcs11.CKR_PIN_INCORRECT,
	pkcs11.CKR_PIN_INVALID,
	pkcs11.CKR_PIN_LEN_RANGE,
	pkcs11.CKR_PIN_EXPIRED,
	pkcs11.CKR_PIN_LOCKED,
}

// classifyTokenError maps a provider error to a Kind. PIN failures are
// BadPassword; everything else means the token could not be used.
func classifyTokenError(err error) Kind {
	var perr pkcs11.Error
	if errors.As(err, &perr) {
		for _, pin := range pinErrors {
			if perr == pin {
				return KindBadPassword
			}
		}
		return KindTokenUnavailable
	}
	// Some wrappers flatten the provider error into text.
	msg := err.Error()
	for _, pin := range pinErrors {
		if strings.Contains(msg, pin.Error()) {
			return KindBadPassword
		}
	}
	return KindTokenUnavailable
}

// Close logs out and releases the provider context.
func (k *Pkcs11Keystore) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	if k.ctx == nil {
		return nil
	}
	err := k.ctx.Close()
	k.ctx = nil
	return err
}
