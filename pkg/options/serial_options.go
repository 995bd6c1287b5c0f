package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SerialOptions)(nil)

// SerialOptions controls how serial ports are probed and how long MAC
// detection may take.
type SerialOptions struct {
	// ProbeBaud is the baud rate used when opening a port to check it is reachable.
	ProbeBaud int `json:"probe-baud" mapstructure:"probe-baud"`

	// ReadTimeout bounds a single read on a probed port.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`

	// DetectTimeout bounds the whole MAC detection, including esptool start-up.
	DetectTimeout time.Duration `json:"detect-timeout" mapstructure:"detect-timeout"`

	// ScanConcurrency limits how many ports the scan command queries at once.
	ScanConcurrency int `json:"scan-concurrency" mapstructure:"scan-concurrency"`
}

// NewSerialOptions creates a SerialOptions with default values.
func NewSerialOptions() *SerialOptions {
	return &SerialOptions{
		ProbeBaud:       115200,
		ReadTimeout:     2 * time.Second,
		DetectTimeout:   30 * time.Second,
		ScanConcurrency: 4,
	}
}

func (o *SerialOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ProbeBaud <= 0 {
		errs = append(errs, fmt.Errorf("--serial.probe-baud must be positive, got %d", o.ProbeBaud))
	}
	if o.DetectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--serial.detect-timeout must be positive"))
	}
	if o.ScanConcurrency < 1 {
		errs = append(errs, fmt.Errorf("--serial.scan-concurrency must be at least 1, got %d", o.ScanConcurrency))
	}
	return errs
}

func (o *SerialOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ProbeBaud, "serial.probe-baud", o.ProbeBaud, "Baud rate used to check that a serial port can be opened.")
	fs.DurationVar(&o.ReadTimeout, "serial.read-timeout", o.ReadTimeout, "Read timeout of the serial port probe.")
	fs.DurationVar(&o.DetectTimeout, "serial.detect-timeout", o.DetectTimeout, "Upper bound for reading the MAC address from a device.")
	fs.IntVar(&o.ScanConcurrency, "serial.scan-concurrency", o.ScanConcurrency, "Number of ports the scan command queries in parallel.")
}
