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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Pkcs11Config is a PKCS#11 provider configuration in the SunPKCS11 file
// format:
//
//	name = SoftHSM
//	library = /usr/lib/softhsm/libsofthsm2.so
//	slotListIndex = 0
//
// Lines starting with '#' are comments. attributes blocks and other
// provider tuning keys are accepted and ignored.
type Pkcs11Config struct {
	Name          string
	Library       string
	Slot          *int
	SlotListIndex *int
	TokenLabel    string
	TokenSerial   string
}

// LoadPkcs11Config reads and parses a provider configuration file.
func LoadPkcs11Config(path string) (*Pkcs11Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(KindUnreadableKeystore, path, "failed to open PKCS#11 configuration", err)
	}
	defer f.Close()

	cfg, err := ParsePkcs11Config(f)
	if err != nil {
		return nil, newError(KindUnreadableKeystore, path, "invalid PKCS#11 configuration", err)
	}
	return cfg, nil
}

// ParsePkcs11Config parses a provider configuration.
func ParsePkcs11Config(r io.Reader) (*Pkcs11Config, error) {
	cfg := &Pkcs11Config{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	depth := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Skip the body of attribute blocks, which may span lines.
		if depth > 0 || strings.HasPrefix(line, "attributes") {
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			if depth < 0 {
				return nil, fmt.Errorf("line %d: unbalanced '}'", lineNo)
			}
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key = value", lineNo)
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		var err error
		switch key {
		case "name":
			cfg.Name = value
		case "library":
			cfg.Library = value
		case "slot":
			cfg.Slot, err = parseSlot(value)
		case "slotListIndex":
			cfg.SlotListIndex, err = parseSlot(value)
		case "tokenLabel":
			cfg.TokenLabel = value
		case "tokenSerial":
			cfg.TokenSerial = value
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", lineNo, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if depth != 0 {
		return nil, fmt.Errorf("unterminated attributes block")
	}

	return cfg, cfg.Validate()
}

// Validate checks that a library is named and that at most one token
// selector is given.
func (c *Pkcs11Config) Validate() error {
	if c.Library == "" {
		return fmt.Errorf("library is required")
	}
	selectors := 0
	for _, set := range []bool{c.Slot != nil, c.SlotListIndex != nil, c.TokenLabel != "", c.TokenSerial != ""} {
		if set {
			selectors++
		}
	}
	if selectors > 1 {
		return fmt.Errorf("only one of slot, slotListIndex, tokenLabel and tokenSerial may be specified")
	}
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func parseSlot(s string) (*int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid slot %q", s)
	}
	return &n, nil
}
