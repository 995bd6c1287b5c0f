package hwtemplate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const catalogYAML = `
versions:
  "1.0":
    entries:
      - key: board
        type: data
        encoding: string
        value: rev-a
  "2.0":
    namespace: factory
    partition-size: 24576
    entries:
      - key: board
        type: data
        encoding: string
        value: rev-b
      - key: cal
        type: data
        encoding: u16
        value: "512"
`

func TestDefaultCatalogAcceptsAnyVersion(t *testing.T) {
	c := Default()
	for _, v := range []string{"1", "v2.3", "rev-c"} {
		l, err := c.Lookup(v)
		if err != nil {
			t.Fatalf("Lookup(%q) error: %v", v, err)
		}
		if l.Namespace != DefaultNamespace {
			t.Errorf("Lookup(%q).Namespace = %q", v, l.Namespace)
		}
		if len(l.Entries) != 0 {
			t.Errorf("Lookup(%q) has extra entries: %v", v, l.Entries)
		}
	}

	if _, err := c.Lookup("  "); !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("Lookup(blank) error = %v, want ErrUnknownVersion", err)
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hw.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := c.VersionNames(); len(got) != 2 || got[0] != "1.0" || got[1] != "2.0" {
		t.Errorf("VersionNames() = %v", got)
	}

	l, err := c.Lookup("1.0")
	if err != nil {
		t.Fatalf("Lookup(1.0) error: %v", err)
	}
	if l.Namespace != DefaultNamespace || len(l.Entries) != 1 || l.Entries[0].Value != "rev-a" {
		t.Errorf("Lookup(1.0) = %+v", l)
	}

	l, err = c.Lookup("2.0")
	if err != nil {
		t.Fatalf("Lookup(2.0) error: %v", err)
	}
	if l.Namespace != "factory" || l.PartitionSize != 24576 || len(l.Entries) != 2 {
		t.Errorf("Lookup(2.0) = %+v", l)
	}

	if _, err := c.Lookup("3.0"); !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("Lookup(3.0) error = %v, want ErrUnknownVersion", err)
	}
}

func TestParseRejectsInvalidLayouts(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "versions: {}\n"},
		{"reserved key", "versions:\n  a:\n    entries:\n      - {key: hv, type: data, encoding: string, value: x}\n"},
		{"duplicate key", "versions:\n  a:\n    entries:\n      - {key: k, type: data, encoding: string, value: x}\n      - {key: k, type: data, encoding: string, value: y}\n"},
		{"long key", "versions:\n  a:\n    entries:\n      - {key: this_key_is_too_long, type: data, encoding: string, value: x}\n"},
		{"bad type", "versions:\n  a:\n    entries:\n      - {key: k, type: blob, encoding: string, value: x}\n"},
		{"bad encoding", "versions:\n  a:\n    entries:\n      - {key: k, type: data, encoding: utf16, value: x}\n"},
		{"bad size", "versions:\n  a:\n    partition-size: 1000\n"},
		{"long namespace", "versions:\n  a:\n    namespace: namespace_too_long\n"},
		{"not yaml", "versions: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Errorf("Parse() error = nil, want error")
			}
		})
	}
}
