// Package flasher writes a generated partition image to a device with esptool.
package flasher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/internal/nvsprov/serialport"
	"cloupeer.io/nvsprov/internal/pkg/toolexec"
	"cloupeer.io/nvsprov/pkg/log"
)

const op = "flash"

type Config struct {
	Python        string
	EsptoolModule string
	Baud          int
	// Offset is the NVS partition address in flash.
	Offset uint64
	// Chip is passed as --chip when set.
	Chip    string
	Timeout time.Duration
	Output  io.Writer
}

// Flasher writes images through esptool write_flash.
type Flasher struct {
	cfg    Config
	runner toolexec.Runner
	prober serialport.Prober
}

func New(cfg Config, runner toolexec.Runner, prober serialport.Prober) *Flasher {
	if cfg.Baud <= 0 {
		cfg.Baud = 115200
	}
	if cfg.Offset == 0 {
		cfg.Offset = 0x9000
	}
	return &Flasher{cfg: cfg, runner: runner, prober: prober}
}

// Command returns the esptool invocation that writes image through port.
func (f *Flasher) Command(image, port string) toolexec.Command {
	args := []string{"-m", f.cfg.EsptoolModule}
	if f.cfg.Chip != "" {
		args = append(args, "--chip", f.cfg.Chip)
	}
	args = append(args,
		"--port", port,
		"--baud", strconv.Itoa(f.cfg.Baud),
		"write_flash", "0x"+strconv.FormatUint(f.cfg.Offset, 16), image,
	)
	return toolexec.Command{Name: f.cfg.Python, Args: args, Output: f.cfg.Output}
}

// Flash writes image to the device on port. Failures are not retried.
func (f *Flasher) Flash(ctx context.Context, image, port string) error {
	fi, err := os.Stat(image)
	if err != nil {
		return core.NewError(core.KindFlashFailed, op, image, err)
	}
	if !fi.Mode().IsRegular() {
		return core.NewError(core.KindFlashFailed, op, image, errors.New("image is not a regular file"))
	}

	if err := f.prober.Probe(port); err != nil {
		return core.NewError(core.KindFlashFailed, op, port, fmt.Errorf("serial port unreachable: %w", err))
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	log.Info("Flashing NVS partition", "image", image, "port", port, "offset", fmt.Sprintf("0x%x", f.cfg.Offset))
	res, err := f.runner.Run(ctx, f.Command(image, port))
	if err != nil {
		exitCode := -1
		var stderr []byte
		if res != nil {
			exitCode, stderr = res.ExitCode, res.Stderr
		}
		return core.NewToolError(core.KindFlashFailed, op, port, exitCode, stderr, err)
	}
	if !res.Success() {
		return core.NewToolError(core.KindFlashFailed, op, port, res.ExitCode, res.Stderr,
			errors.New("esptool write_flash failed"))
	}

	log.Info("Device flashed", "port", port)
	return nil
}
