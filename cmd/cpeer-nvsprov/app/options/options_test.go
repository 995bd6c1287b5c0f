package options

import (
	"errors"
	"testing"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/internal/nvsprov/workflow"
	"cloupeer.io/nvsprov/pkg/app"
)

func TestMode(t *testing.T) {
	tests := []struct {
		name string
		opts ProvisionOptions
		want workflow.Mode
	}{
		{"mac folder", ProvisionOptions{MAC: "aabbccddeeff", GenerateFolder: true}, workflow.ModeFolder},
		{"port folder", ProvisionOptions{Port: "/dev/ttyUSB0", GenerateFolder: true}, workflow.ModeFolder},
		{"folder wins over hv", ProvisionOptions{MAC: "aabbccddeeff", GenerateFolder: true, HardwareVersion: "1"}, workflow.ModeFolder},
		{"port and hv", ProvisionOptions{Port: "/dev/ttyUSB0", HardwareVersion: "1"}, workflow.ModeProvision},
		{"mac port and hv", ProvisionOptions{MAC: "aabbccddeeff", Port: "/dev/ttyUSB0", HardwareVersion: "1"}, workflow.ModeProvision},
		{"mac and hv", ProvisionOptions{MAC: "aabbccddeeff", HardwareVersion: "1"}, workflow.ModeGenerate},
		{"skip flash", ProvisionOptions{Port: "/dev/ttyUSB0", HardwareVersion: "1", SkipFlash: true}, workflow.ModeGenerate},
		{"port only", ProvisionOptions{Port: "/dev/ttyUSB0"}, workflow.ModeDetect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.Mode()
			if err != nil {
				t.Fatalf("Mode() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Mode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestModeErrors(t *testing.T) {
	_, err := (&ProvisionOptions{}).Mode()
	if !core.IsKind(err, core.KindMissingIdentifier) {
		t.Errorf("Mode() without identifier error = %v, want MissingIdentifier", err)
	}

	_, err = (&ProvisionOptions{MAC: "aabbccddeeff"}).Mode()
	if !app.IsUsageError(err) || !errors.Is(err, ErrNothingToDo) {
		t.Errorf("Mode() with bare mac error = %v, want ErrNothingToDo", err)
	}
}

func TestCompleteAndValidate(t *testing.T) {
	o := NewProvisionOptions()
	o.MAC = "  aa:bb:cc:dd:ee:ff "
	o.HardwareVersion = " 1.2 "
	if err := o.Complete(); err != nil {
		t.Fatal(err)
	}
	if o.MAC != "aa:bb:cc:dd:ee:ff" || o.HardwareVersion != "1.2" {
		t.Errorf("Complete() left %q %q", o.MAC, o.HardwareVersion)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("Validate() with defaults error: %v", err)
	}

	o.WaitCredentials = -1
	o.ToolsOptions.FlashBaud = 0
	o.S3Options.Enabled = true
	o.S3Options.AccessKeyID = ""
	if err := o.Validate(); err == nil {
		t.Error("Validate() error = nil for invalid options")
	}
}

func TestFlagsContainSections(t *testing.T) {
	fss := NewProvisionOptions().Flags()
	for _, name := range []string{"provision", "workspace", "tools", "serial", "s3", "mqtt", "metrics", "log"} {
		if _, ok := fss.FlagSets[name]; !ok {
			t.Errorf("flag section %q missing", name)
		}
	}
	if f := fss.FlagSet("provision").Lookup("generate"); f == nil || !f.Hidden {
		t.Error("--generate alias missing or visible")
	}
}
