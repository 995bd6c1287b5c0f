package options

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*ToolsOptions)(nil)

// ToolsOptions configures the external vendor tools: the NVS partition
// generator script and esptool.
type ToolsOptions struct {
	// Python is the interpreter used to run both tools.
	Python string `json:"python" mapstructure:"python"`

	// EsptoolModule is run as `python -m <module>`.
	EsptoolModule string `json:"esptool-module" mapstructure:"esptool-module"`

	// StreamOutput copies tool output to the terminal while the tool runs.
	StreamOutput bool `json:"stream-output" mapstructure:"stream-output"`

	// GeneratorScript is the NVS partition generator, invoked as
	// `python <script> generate <csv> <bin> <size>`.
	GeneratorScript string `json:"generator-script" mapstructure:"generator-script"`

	// Templates is an optional YAML catalog of hardware version layouts.
	Templates string `json:"templates" mapstructure:"templates"`

	// PartitionSize is the NVS partition size, decimal or 0x-prefixed hex.
	PartitionSize string `json:"partition-size" mapstructure:"partition-size"`

	GenerateTimeout time.Duration `json:"generate-timeout" mapstructure:"generate-timeout"`

	FlashBaud int `json:"flash-baud" mapstructure:"flash-baud"`

	// FlashOffset is the NVS partition offset in the device flash.
	FlashOffset string `json:"flash-offset" mapstructure:"flash-offset"`

	// FlashChip is passed to esptool --chip when not empty.
	FlashChip string `json:"flash-chip" mapstructure:"flash-chip"`

	FlashTimeout time.Duration `json:"flash-timeout" mapstructure:"flash-timeout"`
}

// NewToolsOptions creates a ToolsOptions with default values.
func NewToolsOptions() *ToolsOptions {
	return &ToolsOptions{
		Python:          "python3",
		EsptoolModule:   "esptool",
		StreamOutput:    true,
		GeneratorScript: "cert_gen.py",
		PartitionSize:   "0x4000",
		GenerateTimeout: 2 * time.Minute,
		FlashBaud:       115200,
		FlashOffset:     "0x9000",
		FlashTimeout:    5 * time.Minute,
	}
}

func (o *ToolsOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if strings.TrimSpace(o.Python) == "" {
		errs = append(errs, fmt.Errorf("--tools.python must not be empty"))
	}
	if strings.TrimSpace(o.GeneratorScript) == "" {
		errs = append(errs, fmt.Errorf("--tools.generator-script must not be empty"))
	}
	if size, err := ParseFlashNumber(o.PartitionSize); err != nil {
		errs = append(errs, fmt.Errorf("--tools.partition-size: %w", err))
	} else if size == 0 || size%4096 != 0 {
		errs = append(errs, fmt.Errorf("--tools.partition-size must be a positive multiple of 4096, got %d", size))
	}
	if _, err := ParseFlashNumber(o.FlashOffset); err != nil {
		errs = append(errs, fmt.Errorf("--tools.flash-offset: %w", err))
	}
	if o.FlashBaud <= 0 {
		errs = append(errs, fmt.Errorf("--tools.flash-baud must be positive, got %d", o.FlashBaud))
	}
	if o.GenerateTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--tools.generate-timeout must be positive"))
	}
	if o.FlashTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--tools.flash-timeout must be positive"))
	}

	return errs
}

func (o *ToolsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Python, "tools.python", o.Python, "Python interpreter used to run the generator and esptool.")
	fs.StringVar(&o.EsptoolModule, "tools.esptool-module", o.EsptoolModule, "Python module name of esptool.")
	fs.BoolVar(&o.StreamOutput, "tools.stream-output", o.StreamOutput, "Copy external tool output to the terminal while it runs.")
	fs.StringVar(&o.GeneratorScript, "tools.generator-script", o.GeneratorScript, "Path of the NVS partition generator script.")
	fs.StringVar(&o.Templates, "tools.templates", o.Templates, "YAML catalog of hardware version layouts. Empty accepts any --hv with the built-in layout.")
	fs.StringVar(&o.PartitionSize, "tools.partition-size", o.PartitionSize, "NVS partition size in bytes (decimal or 0x hex).")
	fs.DurationVar(&o.GenerateTimeout, "tools.generate-timeout", o.GenerateTimeout, "Upper bound for one partition generator run.")
	fs.IntVar(&o.FlashBaud, "tools.flash-baud", o.FlashBaud, "Baud rate used by esptool while flashing.")
	fs.StringVar(&o.FlashOffset, "tools.flash-offset", o.FlashOffset, "Flash offset of the NVS partition (decimal or 0x hex).")
	fs.StringVar(&o.FlashChip, "tools.flash-chip", o.FlashChip, "Chip type passed to esptool --chip (empty lets esptool detect it).")
	fs.DurationVar(&o.FlashTimeout, "tools.flash-timeout", o.FlashTimeout, "Upper bound for one flashing run.")
}

// ParseFlashNumber parses a decimal or 0x-prefixed size or offset.
func ParseFlashNumber(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
