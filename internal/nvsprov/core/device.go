package core

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DeviceID is the six-octet MAC address that identifies a device.
type DeviceID [6]byte

// ParseDeviceID accepts "aa:bb:cc:dd:ee:ff", "aa-bb-cc-dd-ee-ff" or
// "aabbccddeeff" in any letter case. Mixed delimiters are rejected.
func ParseDeviceID(s string) (DeviceID, error) {
	var id DeviceID

	raw := strings.TrimSpace(s)
	var hexStr string
	switch len(raw) {
	case 12:
		hexStr = raw
	case 17:
		sep := raw[2]
		if sep != ':' && sep != '-' {
			return id, fmt.Errorf("unsupported delimiter %q in %q", sep, s)
		}
		parts := strings.Split(raw, string(sep))
		if len(parts) != 6 {
			return id, fmt.Errorf("expected 6 octets in %q", s)
		}
		for _, p := range parts {
			if len(p) != 2 {
				return id, fmt.Errorf("malformed octet %q in %q", p, s)
			}
		}
		hexStr = strings.Join(parts, "")
	default:
		return id, fmt.Errorf("malformed MAC address %q", s)
	}

	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != len(id) {
		return id, fmt.Errorf("malformed MAC address %q", s)
	}
	copy(id[:], b)
	return id, nil
}

// String returns the canonical lowercase colon-delimited form.
func (id DeviceID) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", id[0], id[1], id[2], id[3], id[4], id[5])
}

// Folder returns the workspace directory name for the device.
func (id DeviceID) Folder() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the id is unset.
func (id DeviceID) IsZero() bool {
	return id == DeviceID{}
}

// Credentials are the two credential slot files of a workspace.
type Credentials struct {
	CertPath string
	KeyPath  string
}
