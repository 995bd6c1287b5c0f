// Package hwtemplate maps hardware versions to the NVS layout generated for them.
package hwtemplate

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultNamespace is the NVS namespace the firmware reads credentials from.
const DefaultNamespace = "certs"

// maxKeyLen is the NVS limit for keys and namespace names.
const maxKeyLen = 15

// ReservedKeys are written by the generator itself and cannot be overridden.
var ReservedKeys = []string{"priv_key", "certificate", "aes_key", "hv"}

var (
	validTypes     = map[string]bool{"data": true, "file": true}
	validEncodings = map[string]bool{
		"u8": true, "i8": true, "u16": true, "i16": true, "u32": true, "i32": true,
		"u64": true, "i64": true, "string": true, "hex2bin": true, "base64": true, "binary": true,
	}
)

// ErrUnknownVersion is returned for a hardware version missing from the catalog.
var ErrUnknownVersion = errors.New("unknown hardware version")

// Entry is one extra key/value row of the NVS descriptor.
type Entry struct {
	Key      string `yaml:"key"`
	Type     string `yaml:"type"`
	Encoding string `yaml:"encoding"`
	Value    string `yaml:"value"`
}

// Layout describes the NVS content for one hardware version.
type Layout struct {
	// Namespace holds all keys; defaults to DefaultNamespace.
	Namespace string `yaml:"namespace,omitempty"`
	// PartitionSize overrides the configured partition size when non-zero.
	PartitionSize uint64  `yaml:"partition-size,omitempty"`
	Entries       []Entry `yaml:"entries,omitempty"`
}

// Catalog is the set of supported hardware versions.
type Catalog struct {
	Versions map[string]Layout `yaml:"versions"`

	// open catalogs accept every version with the built-in layout.
	open bool
}

// Default returns the catalog used when no template file is configured:
// any hardware version is accepted and gets the built-in layout.
func Default() *Catalog {
	return &Catalog{open: true}
}

// Load reads a YAML catalog. Only the versions it lists are accepted.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hardware templates: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse hardware templates: %w", err)
	}
	if len(c.Versions) == 0 {
		return nil, errors.New("hardware templates define no versions")
	}
	for _, v := range c.VersionNames() {
		if err := c.Versions[v].validate(); err != nil {
			return nil, fmt.Errorf("hardware version %q: %w", v, err)
		}
	}
	return &c, nil
}

// Lookup returns the layout of a hardware version.
func (c *Catalog) Lookup(version string) (Layout, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return Layout{}, fmt.Errorf("%w: empty", ErrUnknownVersion)
	}
	if l, ok := c.Versions[version]; ok {
		return l.withDefaults(), nil
	}
	if c.open {
		return Layout{}.withDefaults(), nil
	}
	return Layout{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownVersion, version, strings.Join(c.VersionNames(), ", "))
}

// VersionNames returns the listed versions in sorted order.
func (c *Catalog) VersionNames() []string {
	names := make([]string, 0, len(c.Versions))
	for v := range c.Versions {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

func (l Layout) withDefaults() Layout {
	if l.Namespace == "" {
		l.Namespace = DefaultNamespace
	}
	return l
}

func (l Layout) validate() error {
	if len(l.Namespace) > maxKeyLen {
		return fmt.Errorf("namespace %q longer than %d characters", l.Namespace, maxKeyLen)
	}
	if l.PartitionSize != 0 && l.PartitionSize%4096 != 0 {
		return fmt.Errorf("partition-size %d is not a multiple of 4096", l.PartitionSize)
	}

	seen := map[string]bool{}
	for _, k := range ReservedKeys {
		seen[k] = true
	}
	for _, e := range l.Entries {
		switch {
		case e.Key == "" || len(e.Key) > maxKeyLen:
			return fmt.Errorf("key %q must be 1-%d characters", e.Key, maxKeyLen)
		case seen[e.Key]:
			return fmt.Errorf("key %q is reserved or duplicated", e.Key)
		case !validTypes[e.Type]:
			return fmt.Errorf("key %q: unsupported type %q", e.Key, e.Type)
		case !validEncodings[e.Encoding]:
			return fmt.Errorf("key %q: unsupported encoding %q", e.Key, e.Encoding)
		}
		seen[e.Key] = true
	}
	return nil
}
