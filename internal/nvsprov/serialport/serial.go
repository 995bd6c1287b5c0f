// Package serialport checks and discovers the USB serial ports ESP devices
// enumerate as.
package serialport

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/tarm/serial"
)

// Prober checks that a serial port exists and can be opened exclusively.
type Prober interface {
	Probe(port string) error
}

type tarmProber struct {
	baud        int
	readTimeout time.Duration
}

var _ Prober = (*tarmProber)(nil)

// NewProber returns a Prober that opens the port with the given settings and
// closes it again straight away, leaving it free for esptool.
func NewProber(baud int, readTimeout time.Duration) Prober {
	return &tarmProber{baud: baud, readTimeout: readTimeout}
}

func (p *tarmProber) Probe(port string) error {
	c := &serial.Config{Name: port, Baud: p.baud, ReadTimeout: p.readTimeout}
	s, err := serial.OpenPort(c)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", port, err)
	}
	_ = s.Flush()
	if err := s.Close(); err != nil {
		return fmt.Errorf("close serial port %s: %w", port, err)
	}
	return nil
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(port string) error

func (f ProberFunc) Probe(port string) error { return f(port) }

// candidateGlobs returns the device node patterns USB-UART bridges
// (CP210x, CH340, FTDI) and native USB-CDC chips show up as.
func candidateGlobs(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"/dev/cu.usbserial*", "/dev/cu.SLAB_USBtoUART*", "/dev/cu.wchusbserial*", "/dev/cu.usbmodem*"}
	case "windows":
		return nil
	default:
		return []string{"/dev/ttyUSB*", "/dev/ttyACM*"}
	}
}

// ListCandidatePorts returns the serial ports a device is likely attached to.
func ListCandidatePorts() []string {
	if runtime.GOOS == "windows" {
		ports := make([]string, 0, 40)
		for i := 1; i <= 40; i++ {
			ports = append(ports, fmt.Sprintf("COM%d", i))
		}
		return ports
	}
	return globPorts(candidateGlobs(runtime.GOOS))
}

func globPorts(globs []string) []string {
	seen := map[string]bool{}
	for _, g := range globs {
		matches, _ := filepath.Glob(g)
		for _, m := range matches {
			seen[m] = true
		}
	}
	ports := make([]string, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Strings(ports)
	return ports
}
