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

// Origin tags where a RawCredentialSet came from.
type Origin int

const (
	// OriginPropertiesFile is a properties file such as gradle.properties.
	OriginPropertiesFile Origin = iota
	// OriginCLI is a command-line flag.
	OriginCLI
)

// String returns the name of the origin.
func (o Origin) String() string {
	switch o {
	case OriginPropertiesFile:
		return "propertiesFile"
	case OriginCLI:
		return "cli"
	default:
		return "unknown"
	}
}

// Rank is the precedence of the origin. Higher ranks win when two sources
// define the same field.
func (o Origin) Rank() int {
	switch o {
	case OriginCLI:
		return 2
	case OriginPropertiesFile:
		return 1
	default:
		return 0
	}
}

// RawCredentialSet is an unvalidated, sparse set of signing properties read
// from a single source. It is created by an adapter, handed to Resolve and
// then discarded.
type RawCredentialSet struct {
	origin Origin
	values map[Field]string
}

// NewRawCredentialSet returns an empty set for the given origin.
func NewRawCredentialSet(origin Origin) RawCredentialSet {
	return RawCredentialSet{
		origin: origin,
		values: make(map[Field]string),
	}
}

// FromMap builds a set from field names to values. Unknown names are ignored.
func FromMap(origin Origin, values map[string]string) RawCredentialSet {
	set := NewRawCredentialSet(origin)
	for name, value := range values {
		if f, ok := FieldByName(name); ok {
			set.Set(f, value)
		}
	}
	return set
}

// Origin returns the source the set was read from.
func (s RawCredentialSet) Origin() Origin {
	return s.origin
}

// Set records a value. Empty values are treated as undefined and dropped.
// A zero RawCredentialSet is usable and has OriginPropertiesFile.
func (s *RawCredentialSet) Set(f Field, value string) {
	if value == "" {
		delete(s.values, f)
		return
	}
	if s.values == nil {
		s.values = make(map[Field]string)
	}
	s.values[f] = value
}

// Get returns the value for f and whether this source defines it.
func (s RawCredentialSet) Get(f Field) (string, bool) {
	v, ok := s.values[f]
	return v, ok && v != ""
}

// Len returns the number of defined fields.
func (s RawCredentialSet) Len() int {
	return len(s.values)
}

// Defined returns the defined fields in canonical order.
func (s RawCredentialSet) Defined() []Field {
	out := make([]Field, 0, len(s.values))
	for _, f := range Fields {
		if _, ok := s.Get(f); ok {
			out = append(out, f)
		}
	}
	return out
}
