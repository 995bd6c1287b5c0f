package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
)

func init() {
	signalContext = context.Background
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	a := NewApp()
	var stdout, stderr bytes.Buffer
	a.Command().SetOut(&stdout)
	a.Command().SetErr(&stderr)
	code := a.Execute(args)
	return code, stdout.String(), stderr.String()
}

func TestGenerateFolder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "certs")

	for _, flag := range []string{"-g", "--generate-folder", "--generate"} {
		code, out, errOut := execute(t, "--mac", "AA:BB:CC:DD:EE:FF", flag, "--workspace.root", root)
		if code != core.ExitOK {
			t.Fatalf("%s: exit code = %d, stderr:\n%s", flag, code, errOut)
		}
		if !strings.Contains(out, "aa:bb:cc:dd:ee:ff") {
			t.Errorf("%s: report does not name the device:\n%s", flag, out)
		}
	}

	for _, f := range []string{"device.pem.crt", "private.pem.key", "nvs.csv"} {
		if _, err := os.Stat(filepath.Join(root, "aabbccddeeff", f)); err != nil {
			t.Errorf("%s missing: %v", f, err)
		}
	}
}

func TestExitCodes(t *testing.T) {
	root := filepath.Join(t.TempDir(), "certs")

	tests := []struct {
		name string
		args []string
		want int
		hint string
	}{
		{"no identifier", nil, core.ExitUserInput, "--mac"},
		{"malformed mac", []string{"--mac", "aa:bb", "-g"}, core.ExitUserInput, "six hex octets"},
		{"mac without action", []string{"--mac", "aabbccddeeff"}, core.ExitUserInput, ""},
		{"unknown flag", []string{"--bogus"}, core.ExitUserInput, ""},
		{"positional argument", []string{"aabbccddeeff"}, core.ExitUserInput, ""},
		{"credentials missing", []string{"--mac", "aabbccddeeff", "--hv", "1.0"}, core.ExitUserInput, "certificate"},
		{"invalid option", []string{"--mac", "aabbccddeeff", "-g", "--tools.partition-size", "1000"}, core.ExitUserInput, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--workspace.root", root}, tt.args...)
			code, _, errOut := execute(t, args...)
			if code != tt.want {
				t.Fatalf("exit code = %d, want %d, stderr:\n%s", code, tt.want, errOut)
			}
			if tt.hint != "" && !strings.Contains(errOut, tt.hint) {
				t.Errorf("stderr does not contain %q:\n%s", tt.hint, errOut)
			}
		})
	}
}

func TestEnvironmentAndConfigFile(t *testing.T) {
	dir := t.TempDir()

	envRoot := filepath.Join(dir, "from-env")
	t.Setenv("NVSPROV_WORKSPACE_ROOT", envRoot)
	if code, _, errOut := execute(t, "--mac", "aabbccddeeff", "-g"); code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	if _, err := os.Stat(filepath.Join(envRoot, "aabbccddeeff")); err != nil {
		t.Errorf("environment root not used: %v", err)
	}

	fileRoot := filepath.Join(dir, "from-file")
	cfg := filepath.Join(dir, "nvsprov.yaml")
	if err := os.WriteFile(cfg, []byte("mac: \"11:22:33:44:55:66\"\ngenerate-folder: true\nworkspace:\n  root: "+fileRoot+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NVSPROV_WORKSPACE_ROOT", "")
	if code, _, errOut := execute(t, "--config", cfg); code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	if _, err := os.Stat(filepath.Join(fileRoot, "112233445566")); err != nil {
		t.Errorf("config file not applied: %v", err)
	}

	flagRoot := filepath.Join(dir, "from-flag")
	if code, _, errOut := execute(t, "--config", cfg, "--workspace.root", flagRoot); code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	if _, err := os.Stat(filepath.Join(flagRoot, "112233445566")); err != nil {
		t.Errorf("flag does not override the config file: %v", err)
	}
}

func TestStatusCommand(t *testing.T) {
	root := filepath.Join(t.TempDir(), "certs")

	code, out, _ := execute(t, "status", "--workspace.root", root)
	if code != 0 || !strings.Contains(out, "No workspaces") {
		t.Fatalf("status on empty root: code %d, out:\n%s", code, out)
	}

	if code, _, errOut := execute(t, "--mac", "aabbccddeeff", "-g", "--workspace.root", root); code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	if err := os.WriteFile(filepath.Join(root, "aabbccddeeff", "device.pem.crt"), []byte("pem"), 0o600); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := execute(t, "status", "--workspace.root", root)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	for _, want := range []string{"DEVICE", "aa:bb:cc:dd:ee:ff", "ready", "empty"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output misses %q:\n%s", want, out)
		}
	}
}
