// Package identity resolves the MAC address a device is provisioned under.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/internal/nvsprov/serialport"
	"cloupeer.io/nvsprov/internal/pkg/toolexec"
	"cloupeer.io/nvsprov/pkg/log"
)

const op = "resolve"

// macLine matches the "MAC: xx:xx:xx:xx:xx:xx" line of `esptool read_mac`.
// Newer esptool releases also print a "BASE MAC:" line, which is skipped.
var macLine = regexp.MustCompile(`(?m)^\s*MAC:\s*([0-9A-Fa-f]{2}(?::[0-9A-Fa-f]{2}){5})\b`)

// Config holds the settings of MAC autodetection.
type Config struct {
	Python        string
	EsptoolModule string
	// DetectTimeout bounds the read_mac run.
	DetectTimeout time.Duration
}

// Resolver turns an explicit MAC or a serial port into a DeviceID.
type Resolver struct {
	cfg    Config
	runner toolexec.Runner
	prober serialport.Prober
}

func NewResolver(cfg Config, runner toolexec.Runner, prober serialport.Prober) *Resolver {
	if cfg.DetectTimeout <= 0 {
		cfg.DetectTimeout = 30 * time.Second
	}
	return &Resolver{cfg: cfg, runner: runner, prober: prober}
}

// Resolve returns the device identity. An explicit mac always wins; the port
// is only queried when no mac was given.
func (r *Resolver) Resolve(ctx context.Context, mac, port string) (core.DeviceID, error) {
	switch {
	case mac != "":
		id, err := core.ParseDeviceID(mac)
		if err != nil {
			return core.DeviceID{}, core.NewError(core.KindInvalidIdentifier, op, "", err)
		}
		if port != "" {
			log.Info("Using explicit MAC, the port is only used for flashing", "device", id, "port", port)
		}
		return id, nil
	case port != "":
		return r.Detect(ctx, port)
	default:
		return core.DeviceID{}, core.NewError(core.KindMissingIdentifier, op, "", errors.New("neither a MAC address nor a serial port was given"))
	}
}

// Detect reads the MAC address of the device attached to port.
func (r *Resolver) Detect(ctx context.Context, port string) (core.DeviceID, error) {
	if err := r.prober.Probe(port); err != nil {
		return core.DeviceID{}, core.NewError(core.KindDeviceUnreachable, op, port, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.DetectTimeout)
	defer cancel()

	log.Info("Reading MAC address from device", "port", port)
	res, err := r.runner.Run(ctx, toolexec.Command{
		Name: r.cfg.Python,
		Args: []string{"-m", r.cfg.EsptoolModule, "--port", port, "read_mac"},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no answer within %s: %w", r.cfg.DetectTimeout, err)
		}
		return core.DeviceID{}, core.NewError(core.KindDeviceUnreachable, op, port, err)
	}
	if !res.Success() {
		return core.DeviceID{}, core.NewToolError(core.KindDeviceUnreachable, op, port, res.ExitCode, res.Stderr,
			errors.New("esptool read_mac failed"))
	}

	id, err := ParseReadMacOutput(res.Stdout)
	if err != nil {
		return core.DeviceID{}, core.NewToolError(core.KindDeviceUnreachable, op, port, res.ExitCode, res.Stderr, err)
	}

	log.Info("Device detected", "device", id, "port", port)
	return id, nil
}

// ParseReadMacOutput extracts the device MAC from esptool read_mac output.
func ParseReadMacOutput(out []byte) (core.DeviceID, error) {
	m := macLine.FindSubmatch(out)
	if m == nil {
		return core.DeviceID{}, errors.New("no MAC address in esptool output")
	}
	return core.ParseDeviceID(string(m[1]))
}
