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
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestParseProperties(t *testing.T) {
	data := []byte(`# signing
org.gradle.jvmargs=-Xmx2g
ignition.signing.certAlias = selfsigned
ignition.signing.keystoreFile=keystore.jks
ignition.signing.keystorePassword=pa${ss}
ignition.signing.unknownKey=whatever
ignition.signing.certPassword=
`)

	set, err := ParseProperties(data)
	if err != nil {
		t.Fatalf("ParseProperties() error = %v", err)
	}
	if set.Origin() != OriginPropertiesFile {
		t.Errorf("Origin() = %v, want %v", set.Origin(), OriginPropertiesFile)
	}

	tests := []struct {
		field Field
		want  string
		ok    bool
	}{
		{FieldCertAlias, "selfsigned", true},
		{FieldKeystoreFile, "keystore.jks", true},
		{FieldKeystorePassword, "pa${ss}", true},
		{FieldCertPassword, "", false},
		{FieldCertFile, "", false},
	}
	for _, tt := range tests {
		got, ok := set.Get(tt.field)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Get(%s) = (%q, %v), want (%q, %v)", tt.field, got, ok, tt.want, tt.ok)
		}
	}
	if set.Len() != 3 {
		t.Errorf("Len() = %d, want 3", set.Len())
	}
}

func TestLoadPropertiesFile_Missing(t *testing.T) {
	set, err := LoadPropertiesFile(filepath.Join(t.TempDir(), "gradle.properties"))
	if err != nil {
		t.Fatalf("LoadPropertiesFile() error = %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("Len() = %d, want 0", set.Len())
	}
}

func TestLoadPropertiesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gradle.properties")
	if err := os.WriteFile(path, []byte("ignition.signing.certFile=certificate.pem\n"), 0644); err != nil {
		t.Fatalf("Failed to write properties: %v", err)
	}

	set, err := LoadPropertiesFile(path)
	if err != nil {
		t.Fatalf("LoadPropertiesFile() error = %v", err)
	}
	if v, _ := set.Get(FieldCertFile); v != "certificate.pem" {
		t.Errorf("certFile = %q, want %q", v, "certificate.pem")
	}
}

func TestLoadPropertiesFile_Directory(t *testing.T) {
	if _, err := LoadPropertiesFile(t.TempDir()); err == nil {
		t.Error("expected error reading a directory")
	}
}

func TestParseFlags(t *testing.T) {
	set, err := ParseFlags([]string{"--certAlias=selfsigned", "--pkcs11CfgFile", "pkcs11.cfg"})
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if set.Origin() != OriginCLI {
		t.Errorf("Origin() = %v, want %v", set.Origin(), OriginCLI)
	}
	defined := set.Defined()
	if len(defined) != 2 || defined[0] != FieldCertAlias || defined[1] != FieldPKCS11CfgFile {
		t.Errorf("Defined() = %v, want [certAlias pkcs11CfgFile]", defined)
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	if _, err := ParseFlags([]string{"--nope=1"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestFlagSet_OnlyChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	s := AddFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if n := s.Credentials().Len(); n != 0 {
		t.Errorf("Credentials().Len() = %d, want 0", n)
	}
	for _, f := range Fields {
		if fs.Lookup(f.Name()) == nil {
			t.Errorf("flag %s not registered", f.Flag())
		}
	}
}

func TestFieldByName(t *testing.T) {
	for _, f := range Fields {
		got, ok := FieldByName(f.Name())
		if !ok || got != f {
			t.Errorf("FieldByName(%q) = (%v, %v)", f.Name(), got, ok)
		}
	}
	if _, ok := FieldByName("certalias"); ok {
		t.Error("field names must be case sensitive")
	}
}
