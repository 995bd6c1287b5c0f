// Package scan reads the MAC address of every device attached to the host.
package scan

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/pkg/log"
)

// Detector reads the device identity behind a serial port.
type Detector interface {
	Detect(ctx context.Context, port string) (core.DeviceID, error)
}

// Result is the outcome for one port.
type Result struct {
	Port     string
	DeviceID core.DeviceID
	Err      error
}

// Scanner queries several ports in parallel.
type Scanner struct {
	detector    Detector
	concurrency int
}

func NewScanner(detector Detector, concurrency int) *Scanner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scanner{detector: detector, concurrency: concurrency}
}

// Scan detects the devices on ports. Every port is queried once, duplicates
// are dropped. A failing port is reported in its Result and does not stop
// the others; only cancellation of ctx aborts the scan.
func (s *Scanner) Scan(ctx context.Context, ports []string) ([]Result, error) {
	ports = slices.Clone(ports)
	slices.Sort(ports)
	ports = slices.Compact(ports)

	results := make([]Result, len(ports))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, port := range ports {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := s.detector.Detect(ctx, port)
			results[i] = Result{Port: port, DeviceID: id, Err: err}
			if err != nil {
				log.Debug("No device on port", "port", port, "err", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
