package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
)

func mustID(t *testing.T, s string) core.DeviceID {
	t.Helper()
	id, err := core.ParseDeviceID(s)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestEnsureCreatesLayout(t *testing.T) {
	m := NewManager(t.TempDir())
	ws, created, err := m.Ensure(mustID(t, "AA:BB:CC:DD:EE:FF"))
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if !created {
		t.Error("created = false for a new workspace")
	}
	if filepath.Base(ws.Dir) != "aabbccddeeff" {
		t.Errorf("Dir = %s", ws.Dir)
	}

	for _, p := range []string{ws.CertPath(), ws.KeyPath()} {
		fi, err := os.Stat(p)
		if err != nil {
			t.Fatalf("slot %s: %v", p, err)
		}
		if fi.Size() != 0 {
			t.Errorf("slot %s is not empty", p)
		}
	}

	rows, err := ReadDescriptor(ws.DescriptorPath())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0].Type != "namespace" || rows[0].Key != DefaultNamespace {
		t.Fatalf("descriptor rows = %+v", rows)
	}
	if r, ok := LookupRow(rows, "priv_key"); !ok || r.Value != ws.KeyPath() {
		t.Errorf("priv_key row = %+v", r)
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	m := NewManager(t.TempDir())
	id := mustID(t, "aabbccddeeff")
	ws, _, err := m.Ensure(id)
	if err != nil {
		t.Fatal(err)
	}

	cert := []byte("-----BEGIN CERTIFICATE-----\n")
	if err := os.WriteFile(ws.CertPath(), cert, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ws.DescriptorPath(), []byte("custom\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, s := range []string{"aa-bb-cc-dd-ee-ff", "AABBCCDDEEFF"} {
		again, created, err := m.Ensure(mustID(t, s))
		if err != nil {
			t.Fatalf("Ensure(%s) error: %v", s, err)
		}
		if created {
			t.Errorf("Ensure(%s) created = true for an existing workspace", s)
		}
		if again.Dir != ws.Dir {
			t.Errorf("Ensure(%s) dir = %s, want %s", s, again.Dir, ws.Dir)
		}
	}

	if got, _ := os.ReadFile(ws.CertPath()); string(got) != string(cert) {
		t.Errorf("certificate was modified: %q", got)
	}
	if got, _ := os.ReadFile(ws.DescriptorPath()); string(got) != "custom\n" {
		t.Errorf("descriptor was modified: %q", got)
	}
}

func TestEnsureRejectsFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "aabbccddeeff"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewManager(root).Ensure(mustID(t, "aabbccddeeff")); err == nil {
		t.Fatal("Ensure() error = nil for a file in place of the directory")
	}
}

func TestLoadCredentials(t *testing.T) {
	m := NewManager(t.TempDir())
	ws, _, err := m.Ensure(mustID(t, "aabbccddeeff"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = LoadCredentials(ws)
	if !core.IsKind(err, core.KindCredentialsMissing) {
		t.Fatalf("LoadCredentials() error = %v, want CredentialsMissing", err)
	}
	if !strings.Contains(err.Error(), CertFile) || !strings.Contains(err.Error(), KeyFile) {
		t.Errorf("error does not name both slots: %v", err)
	}

	if err := os.WriteFile(ws.CertPath(), []byte("cert"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = LoadCredentials(ws)
	if !core.IsKind(err, core.KindCredentialsMissing) || strings.Contains(err.Error(), CertFile) {
		t.Fatalf("LoadCredentials() error = %v, want only the key named", err)
	}

	if err := os.WriteFile(ws.KeyPath(), []byte("key"), 0o600); err != nil {
		t.Fatal(err)
	}
	creds, err := LoadCredentials(ws)
	if err != nil {
		t.Fatalf("LoadCredentials() error: %v", err)
	}
	if creds.CertPath != ws.CertPath() || creds.KeyPath != ws.KeyPath() {
		t.Errorf("LoadCredentials() = %+v", creds)
	}
}

func TestWaitCredentials(t *testing.T) {
	m := NewManager(t.TempDir())
	ws, _, err := m.Ensure(mustID(t, "aabbccddeeff"))
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(ws.CertPath(), []byte("cert"), 0o600)
		_ = os.WriteFile(ws.KeyPath(), []byte("key"), 0o600)
	}()

	if _, err := WaitCredentials(context.Background(), ws, 5*time.Second); err != nil {
		t.Fatalf("WaitCredentials() error: %v", err)
	}
}

func TestWaitCredentialsTimeout(t *testing.T) {
	m := NewManager(t.TempDir())
	ws, _, err := m.Ensure(mustID(t, "aabbccddeeff"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = WaitCredentials(context.Background(), ws, 100*time.Millisecond)
	if !core.IsKind(err, core.KindCredentialsMissing) {
		t.Fatalf("WaitCredentials() error = %v, want CredentialsMissing", err)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)

	b, _, err := m.Ensure(mustID(t, "bb:bb:bb:bb:bb:bb"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Ensure(mustID(t, "aa:aa:aa:aa:aa:aa")); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "not-a-device"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b.ImagePath(), make([]byte, 4096), 0o600); err != nil {
		t.Fatal(err)
	}
	rows := append(BaseRows(DefaultNamespace, b), Row{Key: "hv", Type: "data", Encoding: "string", Value: "1.2"})
	if err := WriteDescriptor(b.DescriptorPath(), rows); err != nil {
		t.Fatal(err)
	}

	list, err := m.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() = %d entries, want 2", len(list))
	}
	if list[0].ID.Folder() != "aaaaaaaaaaaa" || list[0].HasImage() {
		t.Errorf("list[0] = %+v", list[0])
	}
	if !list[1].HasImage() || list[1].ImageSize != 4096 || list[1].HardwareVersion != "1.2" {
		t.Errorf("list[1] = %+v", list[1])
	}

	empty, err := NewManager(filepath.Join(root, "missing")).List()
	if err != nil || len(empty) != 0 {
		t.Errorf("List() on missing root = %v, %v", empty, err)
	}
}

func TestDescriptorQuoting(t *testing.T) {
	path := filepath.Join(t.TempDir(), DescriptorFile)
	in := []Row{NamespaceRow("certs"), {Key: "note", Type: "data", Encoding: "string", Value: `a,"b"`}}
	if err := WriteDescriptor(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadDescriptor(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1] != in[1] {
		t.Errorf("ReadDescriptor() = %+v", out)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "key,type,encoding,value\ncerts,namespace,,\n") {
		t.Errorf("descriptor text = %q", data)
	}
}
