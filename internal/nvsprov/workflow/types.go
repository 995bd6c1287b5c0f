package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/internal/nvsprov/workspace"
)

// Mode selects how far a run goes.
type Mode string

const (
	// ModeFolder stops once the workspace exists.
	ModeFolder Mode = "folder"
	// ModeGenerate stops once the partition image is generated.
	ModeGenerate Mode = "generate"
	// ModeProvision generates and flashes.
	ModeProvision Mode = "provision"
	// ModeDetect only reads the MAC address of the attached device.
	ModeDetect Mode = "detect"
)

// events returns the steps a mode runs, in order.
func (m Mode) events() []string {
	switch m {
	case ModeDetect:
		return []string{EventResolve}
	case ModeFolder:
		return []string{EventResolve, EventScaffold}
	case ModeGenerate:
		return []string{EventResolve, EventScaffold, EventLoad, EventGenerate}
	case ModeProvision:
		return []string{EventResolve, EventScaffold, EventLoad, EventGenerate, EventFlash}
	}
	return nil
}

var ErrHardwareVersionRequired = errors.New("a hardware version is required to generate the partition")

// Request is the input of one run.
type Request struct {
	Mode            Mode
	MAC             string
	Port            string
	HardwareVersion string
	// WaitCredentials, when positive, waits this long for the credential
	// files instead of failing at once.
	WaitCredentials time.Duration
}

func (r Request) Validate() error {
	if r.Mode.events() == nil {
		return fmt.Errorf("unknown mode %q", r.Mode)
	}
	if (r.Mode == ModeGenerate || r.Mode == ModeProvision) && r.HardwareVersion == "" {
		return ErrHardwareVersionRequired
	}
	if (r.Mode == ModeProvision || r.Mode == ModeDetect) && r.Port == "" {
		return core.NewError(core.KindMissingIdentifier, string(r.Mode), "", errors.New("a serial port is required"))
	}
	return nil
}

// Step is the outcome of one workflow step.
type Step struct {
	Event    string
	Duration time.Duration
	Err      error
}

// Report tells what a run did and which state it reached.
type Report struct {
	RunID           string
	Mode            Mode
	DeviceID        core.DeviceID
	Port            string
	HardwareVersion string

	Workspace   string
	Created     bool
	ImagePath   string
	ImageSHA256 string
	ImageSize   int64
	ArchiveKey  string

	// State is the last state reached.
	State string
	Steps []Step

	StartedAt  time.Time
	FinishedAt time.Time
}

// Record converts the report into the record that is archived and published.
func (r *Report) Record(err error) *core.Record {
	rec := &core.Record{
		RunID:           r.RunID,
		Mode:            string(r.Mode),
		HardwareVersion: r.HardwareVersion,
		Port:            r.Port,
		ImageSHA256:     r.ImageSHA256,
		ImageSize:       r.ImageSize,
		State:           r.State,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
	if !r.DeviceID.IsZero() {
		rec.DeviceID = r.DeviceID.String()
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// Resolver finds the device identity.
type Resolver interface {
	Resolve(ctx context.Context, mac, port string) (core.DeviceID, error)
}

// Generator produces the partition image of a workspace.
type Generator interface {
	Generate(ctx context.Context, ws *workspace.Workspace, creds core.Credentials, hardwareVersion string) (string, error)
}

// Flasher writes an image to the device on a port.
type Flasher interface {
	Flash(ctx context.Context, image, port string) error
}

// Observer receives step and run outcomes, e.g. for metrics.
type Observer interface {
	ObserveStep(step string, d time.Duration, result string)
	ObserveRun(mode, result string, finished time.Time)
}
