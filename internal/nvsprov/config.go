// Package nvsprov wires the provisioning components from their options.
package nvsprov

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"cloupeer.io/nvsprov/internal/nvsprov/archive"
	"cloupeer.io/nvsprov/internal/nvsprov/flasher"
	"cloupeer.io/nvsprov/internal/nvsprov/generator"
	"cloupeer.io/nvsprov/internal/nvsprov/hwtemplate"
	"cloupeer.io/nvsprov/internal/nvsprov/identity"
	"cloupeer.io/nvsprov/internal/nvsprov/notifier"
	"cloupeer.io/nvsprov/internal/nvsprov/scan"
	"cloupeer.io/nvsprov/internal/nvsprov/serialport"
	"cloupeer.io/nvsprov/internal/nvsprov/workflow"
	"cloupeer.io/nvsprov/internal/nvsprov/workspace"
	"cloupeer.io/nvsprov/internal/pkg/metrics"
	"cloupeer.io/nvsprov/internal/pkg/toolexec"
	"cloupeer.io/nvsprov/pkg/log"
	"cloupeer.io/nvsprov/pkg/options"
)

type Config struct {
	WorkspaceOptions *options.WorkspaceOptions
	ToolsOptions     *options.ToolsOptions
	SerialOptions    *options.SerialOptions
	S3Options        *options.S3Options
	MqttOptions      *options.MqttOptions
	MetricsOptions   *options.MetricsOptions
}

// Provisioner holds the components of one invocation.
type Provisioner struct {
	Workflow   *workflow.Workflow
	Resolver   *identity.Resolver
	Workspaces *workspace.Manager
	Scanner    *scan.Scanner

	notifier *notifier.MQTTNotifier
	textfile string
}

func (cfg *Config) NewProvisioner() (*Provisioner, error) {
	return cfg.newProvisioner(toolexec.NewRunner(), serialport.NewProber(cfg.SerialOptions.ProbeBaud, cfg.SerialOptions.ReadTimeout))
}

func (cfg *Config) newProvisioner(runner toolexec.Runner, prober serialport.Prober) (*Provisioner, error) {
	tools := cfg.ToolsOptions

	var output io.Writer
	if tools.StreamOutput {
		output = os.Stderr
	}

	catalog := hwtemplate.Default()
	if tools.Templates != "" {
		c, err := hwtemplate.Load(tools.Templates)
		if err != nil {
			return nil, err
		}
		catalog = c
	}

	size, err := options.ParseFlashNumber(tools.PartitionSize)
	if err != nil {
		return nil, fmt.Errorf("invalid partition size: %w", err)
	}
	offset, err := options.ParseFlashNumber(tools.FlashOffset)
	if err != nil {
		return nil, fmt.Errorf("invalid flash offset: %w", err)
	}

	resolver := identity.NewResolver(identity.Config{
		Python:        tools.Python,
		EsptoolModule: tools.EsptoolModule,
		DetectTimeout: cfg.SerialOptions.DetectTimeout,
	}, runner, prober)

	gen := generator.New(generator.Config{
		Python:        tools.Python,
		Script:        tools.GeneratorScript,
		PartitionSize: size,
		Timeout:       tools.GenerateTimeout,
		Output:        output,
	}, catalog, runner)

	fl := flasher.New(flasher.Config{
		Python:        tools.Python,
		EsptoolModule: tools.EsptoolModule,
		Baud:          tools.FlashBaud,
		Offset:        offset,
		Chip:          tools.FlashChip,
		Timeout:       tools.FlashTimeout,
		Output:        output,
	}, runner, prober)

	p := &Provisioner{
		Resolver:   resolver,
		Workspaces: workspace.NewManager(cfg.WorkspaceOptions.Root),
		Scanner:    scan.NewScanner(resolver, cfg.SerialOptions.ScanConcurrency),
		textfile:   cfg.MetricsOptions.Textfile,
	}

	wfOpts := []workflow.Option{workflow.WithObserver(metrics.Recorder{})}
	if cfg.S3Options.Enabled {
		a, err := archive.NewMinIOArchiver(cfg.S3Options)
		if err != nil {
			return nil, fmt.Errorf("failed to init archiver: %w", err)
		}
		wfOpts = append(wfOpts, workflow.WithArchiver(a))
	}
	if cfg.MqttOptions.Enabled {
		n, err := notifier.NewMQTTNotifier(cfg.MqttOptions, uuid.NewString())
		if err != nil {
			return nil, fmt.Errorf("failed to init notifier: %w", err)
		}
		p.notifier = n
		wfOpts = append(wfOpts, workflow.WithNotifier(n))
	}

	p.Workflow = workflow.New(resolver, p.Workspaces, gen, fl, wfOpts...)
	return p, nil
}

// Run executes one provisioning request and writes the metrics textfile.
func (p *Provisioner) Run(ctx context.Context, req workflow.Request) (*workflow.Report, error) {
	report, err := p.Workflow.Run(ctx, req)
	if p.textfile != "" {
		if werr := metrics.WriteTextfile(p.textfile); werr != nil {
			log.Warn("Failed to write metrics textfile", "path", p.textfile, "err", werr)
		}
	}
	return report, err
}

// Close releases the broker connection, if any.
func (p *Provisioner) Close(ctx context.Context) {
	if p.notifier != nil {
		p.notifier.Close(ctx)
	}
}
