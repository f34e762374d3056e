package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func TestCheckValidModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wasm")
	if err := os.WriteFile(path, emptyModule, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	checkCmd.SetOut(&out)
	if err := runCheck(checkCmd, []string{path}); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("ok")) {
		t.Errorf("expected ok, got %q", out.String())
	}
}

func TestCheckMissingFile(t *testing.T) {
	if err := runCheck(checkCmd, []string{filepath.Join(t.TempDir(), "nope.wasm")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestServeFlagDefaults(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"port", "8080"},
		{"timeout", "30s"},
		{"memory-limit", "1024"},
		{"inbound-cap", "0"},
	}
	for _, tt := range tests {
		f := serveCmd.Flags().Lookup(tt.flag)
		if f == nil {
			t.Errorf("flag %q not registered", tt.flag)
			continue
		}
		if f.DefValue != tt.want {
			t.Errorf("flag %q: expected default %q, got %q", tt.flag, tt.want, f.DefValue)
		}
	}
}

func TestRootSubcommands(t *testing.T) {
	for _, name := range []string{"serve", "check"} {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
