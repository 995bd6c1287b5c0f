package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
)

// Status is a snapshot of one workspace on disk.
type Status struct {
	ID              core.DeviceID
	Dir             string
	CertReady       bool
	KeyReady        bool
	HardwareVersion string
	ImageSize       int64
	ImageModTime    time.Time
}

// HasImage reports whether a partition image has been generated.
func (s Status) HasImage() bool {
	return !s.ImageModTime.IsZero()
}

// Inspect returns the status of a single workspace.
func Inspect(ws *Workspace) (Status, error) {
	st := Status{
		ID:        ws.ID,
		Dir:       ws.Dir,
		CertReady: slotFilled(ws.CertPath()),
		KeyReady:  slotFilled(ws.KeyPath()),
	}

	rows, err := ReadDescriptor(ws.DescriptorPath())
	if err != nil {
		return st, err
	}
	if r, ok := LookupRow(rows, "hv"); ok {
		st.HardwareVersion = r.Value
	}

	fi, err := os.Stat(ws.ImagePath())
	switch {
	case err == nil:
		st.ImageSize = fi.Size()
		st.ImageModTime = fi.ModTime()
	case !errors.Is(err, fs.ErrNotExist):
		return st, fmt.Errorf("failed to stat image: %w", err)
	}
	return st, nil
}

// List inspects every workspace below the root, sorted by device id.
// Directories whose name is not a device id are skipped. A missing root
// yields an empty list.
func (m *Manager) List() ([]Status, error) {
	entries, err := os.ReadDir(m.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace root: %w", err)
	}

	var out []Status
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := core.ParseDeviceID(e.Name())
		if err != nil || id.Folder() != e.Name() {
			continue
		}
		st, err := Inspect(m.Workspace(id))
		if err != nil {
			return nil, fmt.Errorf("workspace %s: %w", e.Name(), err)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Folder() < out[j].ID.Folder() })
	return out, nil
}
