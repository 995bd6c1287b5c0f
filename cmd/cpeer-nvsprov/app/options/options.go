package options

import (
	"errors"
	"fmt"
	"strings"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"cloupeer.io/nvsprov/internal/nvsprov"
	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/internal/nvsprov/workflow"
	"cloupeer.io/nvsprov/pkg/app"
	"cloupeer.io/nvsprov/pkg/log"
	"cloupeer.io/nvsprov/pkg/options"
)

// ErrNothingToDo is returned for a MAC without -g or --hv.
var ErrNothingToDo = errors.New("nothing to do: add -g to create the workspace or --hv to generate the partition")

type ProvisionOptions struct {
	MAC             string        `json:"mac" mapstructure:"mac"`
	Port            string        `json:"port" mapstructure:"port"`
	GenerateFolder  bool          `json:"generate-folder" mapstructure:"generate-folder"`
	HardwareVersion string        `json:"hv" mapstructure:"hv"`
	SkipFlash       bool          `json:"skip-flash" mapstructure:"skip-flash"`
	WaitCredentials time.Duration `json:"wait-credentials" mapstructure:"wait-credentials"`

	WorkspaceOptions *options.WorkspaceOptions `json:"workspace" mapstructure:"workspace"`
	ToolsOptions     *options.ToolsOptions     `json:"tools" mapstructure:"tools"`
	SerialOptions    *options.SerialOptions    `json:"serial" mapstructure:"serial"`
	S3Options        *options.S3Options        `json:"s3" mapstructure:"s3"`
	MqttOptions      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	MetricsOptions   *options.MetricsOptions   `json:"metrics" mapstructure:"metrics"`
	Log              *log.Options              `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*ProvisionOptions)(nil)

func NewProvisionOptions() *ProvisionOptions {
	return &ProvisionOptions{
		WorkspaceOptions: options.NewWorkspaceOptions(),
		ToolsOptions:     options.NewToolsOptions(),
		SerialOptions:    options.NewSerialOptions(),
		S3Options:        options.NewS3Options(),
		MqttOptions:      options.NewMqttOptions(),
		MetricsOptions:   options.NewMetricsOptions(),
		Log:              log.NewOptions(),
	}
}

func (o *ProvisionOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}

	fs := fss.FlagSet("provision")
	fs.StringVar(&o.MAC, "mac", o.MAC, "MAC address of the device, e.g. aa:bb:cc:dd:ee:ff. Takes precedence over detection through --port.")
	fs.StringVar(&o.Port, "port", o.Port, "Serial port of the device, used to read its MAC and to flash.")
	fs.BoolVarP(&o.GenerateFolder, "generate-folder", "g", o.GenerateFolder, "Create the device workspace with empty credential files and exit.")
	fs.BoolVar(&o.GenerateFolder, "generate", o.GenerateFolder, "Alias of --generate-folder.")
	_ = fs.MarkHidden("generate")
	fs.StringVar(&o.HardwareVersion, "hv", o.HardwareVersion, "Hardware version stored in the partition. Generates, and flashes when --port is set.")
	fs.BoolVar(&o.SkipFlash, "skip-flash", o.SkipFlash, "Generate the partition without flashing even if --port is set.")
	fs.DurationVar(&o.WaitCredentials, "wait-credentials", o.WaitCredentials, "Wait up to this long for the credential files to be filled instead of failing at once.")

	o.WorkspaceOptions.AddFlags(fss.FlagSet("workspace"))
	o.ToolsOptions.AddFlags(fss.FlagSet("tools"))
	o.SerialOptions.AddFlags(fss.FlagSet("serial"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.MetricsOptions.AddFlags(fss.FlagSet("metrics"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ProvisionOptions) Complete() error {
	o.MAC = strings.TrimSpace(o.MAC)
	o.Port = strings.TrimSpace(o.Port)
	o.HardwareVersion = strings.TrimSpace(o.HardwareVersion)
	return nil
}

func (o *ProvisionOptions) Validate() error {
	errs := []error{}
	if o.WaitCredentials < 0 {
		errs = append(errs, fmt.Errorf("--wait-credentials must not be negative"))
	}
	errs = append(errs, o.WorkspaceOptions.Validate()...)
	errs = append(errs, o.ToolsOptions.Validate()...)
	errs = append(errs, o.SerialOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.MetricsOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// Mode derives what the invocation does from the given flags.
func (o *ProvisionOptions) Mode() (workflow.Mode, error) {
	switch {
	case o.GenerateFolder:
		return workflow.ModeFolder, nil
	case o.HardwareVersion != "" && o.Port != "" && !o.SkipFlash:
		return workflow.ModeProvision, nil
	case o.HardwareVersion != "":
		return workflow.ModeGenerate, nil
	case o.MAC != "":
		return "", &app.UsageError{Err: ErrNothingToDo}
	case o.Port != "":
		return workflow.ModeDetect, nil
	default:
		return "", core.NewError(core.KindMissingIdentifier, "resolve", "", errors.New("neither --mac nor --port was given"))
	}
}

// Request builds the workflow request of this invocation.
func (o *ProvisionOptions) Request() (workflow.Request, error) {
	mode, err := o.Mode()
	if err != nil {
		return workflow.Request{}, err
	}
	return workflow.Request{
		Mode:            mode,
		MAC:             o.MAC,
		Port:            o.Port,
		HardwareVersion: o.HardwareVersion,
		WaitCredentials: o.WaitCredentials,
	}, nil
}

func (o *ProvisionOptions) Config() (*nvsprov.Config, error) {
	return &nvsprov.Config{
		WorkspaceOptions: o.WorkspaceOptions,
		ToolsOptions:     o.ToolsOptions,
		SerialOptions:    o.SerialOptions,
		S3Options:        o.S3Options,
		MqttOptions:      o.MqttOptions,
		MetricsOptions:   o.MetricsOptions,
	}, nil
}
