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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/magiconair/properties"
)

// ParseProperties reads signing properties from the contents of a
// properties file. Keys outside the signing namespace, and unknown keys
// inside it, are ignored.
func ParseProperties(data []byte) (RawCredentialSet, error) {
	set := NewRawCredentialSet(OriginPropertiesFile)

	// Expansion is disabled so that passwords containing "${" are taken
	// literally.
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return set, fmt.Errorf("failed to parse properties: %w", err)
	}

	for _, key := range p.Keys() {
		name, ok := strings.CutPrefix(key, PropertyPrefix)
		if !ok {
			continue
		}
		f, ok := FieldByName(name)
		if !ok {
			continue
		}
		v, _ := p.Get(key)
		set.Set(f, strings.TrimSpace(v))
	}
	return set, nil
}

// LoadPropertiesFile reads signing properties from path. A missing file is
// not an error and yields an empty set.
func LoadPropertiesFile(path string) (RawCredentialSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewRawCredentialSet(OriginPropertiesFile), nil
		}
		return NewRawCredentialSet(OriginPropertiesFile), fmt.Errorf("failed to read properties file %s: %w", path, err)
	}

	set, err := ParseProperties(data)
	if err != nil {
		return set, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}
