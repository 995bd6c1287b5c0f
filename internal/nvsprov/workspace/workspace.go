// Package workspace manages the per-device directories that hold credential
// inputs and the generated partition image.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/pkg/log"
)

// Fixed file names inside a workspace.
const (
	CertFile       = "device.pem.crt"
	KeyFile        = "private.pem.key"
	DescriptorFile = "nvs.csv"
	ImageFile      = "certs.bin"

	// tempImageFile receives the generator output until it is complete. The
	// partition generator only writes files with a .bin extension.
	tempImageFile = ".certs.tmp.bin"
)

const (
	dirPerm  = 0o755
	filePerm = 0o600
)

// Workspace is the directory of one device.
type Workspace struct {
	ID  core.DeviceID
	Dir string
}

func (w *Workspace) CertPath() string       { return filepath.Join(w.Dir, CertFile) }
func (w *Workspace) KeyPath() string        { return filepath.Join(w.Dir, KeyFile) }
func (w *Workspace) DescriptorPath() string { return filepath.Join(w.Dir, DescriptorFile) }
func (w *Workspace) ImagePath() string      { return filepath.Join(w.Dir, ImageFile) }

// TempImagePath is where a generation run writes before the image is replaced.
func (w *Workspace) TempImagePath() string { return filepath.Join(w.Dir, tempImageFile) }

// Manager creates and inspects workspaces below a root directory.
type Manager struct {
	root string
}

func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Root returns the directory holding all workspaces.
func (m *Manager) Root() string {
	return m.root
}

// Workspace returns the workspace handle of a device without touching the disk.
func (m *Manager) Workspace(id core.DeviceID) *Workspace {
	return &Workspace{ID: id, Dir: filepath.Join(m.root, id.Folder())}
}

// Ensure makes sure the workspace of id exists. Missing credential slots are
// created empty and a missing descriptor is seeded with the base rows; files
// that already exist are never modified. created reports whether the
// directory itself was new.
func (m *Manager) Ensure(id core.DeviceID) (ws *Workspace, created bool, err error) {
	ws = m.Workspace(id)

	switch fi, err := os.Stat(ws.Dir); {
	case err == nil && !fi.IsDir():
		return nil, false, fmt.Errorf("workspace path %s exists and is not a directory", ws.Dir)
	case errors.Is(err, fs.ErrNotExist):
		created = true
	case err != nil:
		return nil, false, fmt.Errorf("failed to stat workspace %s: %w", ws.Dir, err)
	}

	if err := os.MkdirAll(ws.Dir, dirPerm); err != nil {
		return nil, false, fmt.Errorf("failed to create workspace %s: %w", ws.Dir, err)
	}

	for _, p := range []string{ws.CertPath(), ws.KeyPath()} {
		seeded, err := createIfAbsent(p, nil)
		if err != nil {
			return nil, created, err
		}
		if seeded {
			log.Info("Created empty credential slot", "path", p)
		}
	}

	base, err := EncodeDescriptor(BaseRows(DefaultNamespace, ws))
	if err != nil {
		return nil, created, err
	}
	if seeded, err := createIfAbsent(ws.DescriptorPath(), base); err != nil {
		return nil, created, err
	} else if seeded {
		log.Info("Created NVS descriptor", "path", ws.DescriptorPath())
	}

	if created {
		log.Info("Workspace created", "device", id, "dir", ws.Dir)
	} else {
		log.Info("Workspace already exists, existing files kept", "device", id, "dir", ws.Dir)
	}
	return ws, created, nil
}

// createIfAbsent writes data to a new file at path. An existing file is left
// untouched and reported as not seeded.
func createIfAbsent(path string, data []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return true, nil
}

// WriteFileAtomic replaces path with data through a temporary sibling file,
// so readers never observe a half-written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
