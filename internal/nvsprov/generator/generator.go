// Package generator turns a device workspace into an NVS partition image by
// driving the external partition generator script.
package generator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/internal/nvsprov/hwtemplate"
	"cloupeer.io/nvsprov/internal/nvsprov/workspace"
	"cloupeer.io/nvsprov/internal/pkg/toolexec"
	"cloupeer.io/nvsprov/pkg/log"
)

const op = "generate"

// aesKeyLen is the size of the per-device NVS key in bytes.
const aesKeyLen = 16

// Config holds the settings of the partition generator.
type Config struct {
	Python string
	Script string
	// PartitionSize is used unless the hardware layout overrides it.
	PartitionSize uint64
	Timeout       time.Duration
	// Output receives the live tool output, nil keeps it captured only.
	Output io.Writer
}

// Generator produces certs.bin for a workspace.
type Generator struct {
	cfg     Config
	catalog *hwtemplate.Catalog
	runner  toolexec.Runner
}

func New(cfg Config, catalog *hwtemplate.Catalog, runner toolexec.Runner) *Generator {
	if catalog == nil {
		catalog = hwtemplate.Default()
	}
	if cfg.PartitionSize == 0 {
		cfg.PartitionSize = 0x4000
	}
	return &Generator{cfg: cfg, catalog: catalog, runner: runner}
}

// Generate writes the descriptor for hardwareVersion and regenerates the
// partition image. The previous image is replaced only when the tool succeeds.
func (g *Generator) Generate(ctx context.Context, ws *workspace.Workspace, creds core.Credentials, hardwareVersion string) (string, error) {
	layout, err := g.catalog.Lookup(hardwareVersion)
	if err != nil {
		return "", core.NewError(core.KindGenerationFailed, op, ws.Dir, err)
	}

	rows, err := g.descriptorRows(ws, creds, layout, hardwareVersion)
	if err != nil {
		return "", core.NewError(core.KindGenerationFailed, op, ws.DescriptorPath(), err)
	}
	if err := workspace.WriteDescriptor(ws.DescriptorPath(), rows); err != nil {
		return "", core.NewError(core.KindGenerationFailed, op, ws.DescriptorPath(), err)
	}

	size := g.cfg.PartitionSize
	if layout.PartitionSize != 0 {
		size = layout.PartitionSize
	}

	image := ws.ImagePath()
	tmp := ws.TempImagePath()
	_ = os.Remove(tmp)

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	log.Info("Generating NVS partition", "device", ws.ID, "hv", hardwareVersion, "size", size)
	res, err := g.runner.Run(ctx, toolexec.Command{
		Name:   g.cfg.Python,
		Args:   []string{g.cfg.Script, "generate", ws.DescriptorPath(), tmp, strconv.FormatUint(size, 10)},
		Output: g.cfg.Output,
	})
	if err != nil {
		_ = os.Remove(tmp)
		exitCode := -1
		var stderr []byte
		if res != nil {
			exitCode, stderr = res.ExitCode, res.Stderr
		}
		return "", core.NewToolError(core.KindGenerationFailed, op, ws.Dir, exitCode, stderr, err)
	}
	if !res.Success() {
		_ = os.Remove(tmp)
		return "", core.NewToolError(core.KindGenerationFailed, op, ws.Dir, res.ExitCode, res.Stderr,
			errors.New("partition generator failed"))
	}

	if _, err := os.Stat(tmp); err != nil {
		return "", core.NewToolError(core.KindGenerationFailed, op, tmp, res.ExitCode, res.Stderr,
			fmt.Errorf("generator exited successfully but wrote no image: %w", err))
	}
	if err := os.Rename(tmp, image); err != nil {
		_ = os.Remove(tmp)
		return "", core.NewError(core.KindGenerationFailed, op, image, err)
	}

	log.Info("NVS partition generated", "device", ws.ID, "image", image)
	return image, nil
}

// descriptorRows builds the generator input. The AES key already stored in
// the workspace descriptor is kept so that unchanged inputs yield the same image.
func (g *Generator) descriptorRows(ws *workspace.Workspace, creds core.Credentials, layout hwtemplate.Layout, hardwareVersion string) ([]workspace.Row, error) {
	existing, err := workspace.ReadDescriptor(ws.DescriptorPath())
	if err != nil {
		// An unreadable descriptor is regenerated from scratch.
		log.Warn("Ignoring unreadable NVS descriptor", "path", ws.DescriptorPath(), "err", err)
		existing = nil
	}

	aesKey, err := preservedAESKey(existing)
	if err != nil {
		return nil, err
	}

	rows := []workspace.Row{
		workspace.NamespaceRow(layout.Namespace),
		{Key: "priv_key", Type: "file", Encoding: "string", Value: creds.KeyPath},
		{Key: "certificate", Type: "file", Encoding: "string", Value: creds.CertPath},
	}
	for _, e := range layout.Entries {
		rows = append(rows, workspace.Row{Key: e.Key, Type: e.Type, Encoding: e.Encoding, Value: e.Value})
	}
	rows = append(rows,
		workspace.Row{Key: "aes_key", Type: "data", Encoding: "string", Value: aesKey},
		workspace.Row{Key: "hv", Type: "data", Encoding: "string", Value: hardwareVersion},
	)
	return rows, nil
}

func preservedAESKey(rows []workspace.Row) (string, error) {
	if r, ok := workspace.LookupRow(rows, "aes_key"); ok && validAESKey(r.Value) {
		return r.Value, nil
	}
	return newAESKey()
}

func validAESKey(s string) bool {
	b, err := hex.DecodeString(s)
	return err == nil && len(b) == aesKeyLen
}

func newAESKey() (string, error) {
	b := make([]byte, aesKeyLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate device AES key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
