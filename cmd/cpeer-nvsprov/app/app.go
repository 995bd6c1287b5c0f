package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"cloupeer.io/nvsprov/cmd/cpeer-nvsprov/app/options"
	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/internal/nvsprov/workflow"
	"cloupeer.io/nvsprov/pkg/app"
)

const (
	commandName = "cpeer-nvsprov"
	commandDesc = `cpeer-nvsprov provisions the NVS partition of ESP32 devices.

It keeps one workspace per device below --workspace.root, named after the
device MAC. A workspace holds the device certificate and private key, the
NVS descriptor and the generated partition image.

  Create the workspace:          cpeer-nvsprov --mac <mac> -g
                                 cpeer-nvsprov --port <port> -g
  Generate and flash:            cpeer-nvsprov --port <port> --hv <version>
  Generate only:                 cpeer-nvsprov --mac <mac> --hv <version>
  Print the MAC of a device:     cpeer-nvsprov --port <port>

Every flag can also be set in the --config file or as NVSPROV_<FLAG>, e.g.
NVSPROV_TOOLS_PYTHON for --tools.python.`
)

// signalContext returns the context cancelled on SIGINT or SIGTERM.
var signalContext = genericapiserver.SetupSignalContext

func NewApp() *app.App {
	opts := options.NewProvisionOptions()

	var application *app.App
	application = app.NewApp(
		commandName,
		"Generate and flash per-device NVS credential partitions",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithLogOptions(opts.Log),
		app.WithDefaultValidArgs(),
		app.WithCommands(newScanCommand(opts), newStatusCommand(opts)),
		app.WithExitCode(core.ExitCodeFor),
		app.WithRunFunc(func() error {
			return run(signalContext(), opts, application.Command())
		}),
	)
	return application
}

func run(ctx context.Context, opts *options.ProvisionOptions, cmd *cobra.Command) error {
	req, err := opts.Request()
	if err != nil {
		_ = cmd.Help()
		printHint(cmd.ErrOrStderr(), err)
		return err
	}

	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	p, err := cfg.NewProvisioner()
	if err != nil {
		return fmt.Errorf("failed to create provisioner: %w", err)
	}
	defer p.Close(context.Background())

	report, err := p.Run(ctx, req)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	printHint(cmd.ErrOrStderr(), err)
	return err
}

func printReport(w io.Writer, r *workflow.Report) {
	if r.Mode == workflow.ModeDetect {
		if !r.DeviceID.IsZero() {
			fmt.Fprintf(w, "MAC: %s\n", r.DeviceID)
		}
		return
	}

	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("Run:", r.RunID)
	if !r.DeviceID.IsZero() {
		table.AddRow("Device:", r.DeviceID)
	}
	if r.Workspace != "" {
		state := "existing"
		if r.Created {
			state = "created"
		}
		table.AddRow("Workspace:", fmt.Sprintf("%s (%s)", r.Workspace, state))
	}
	if r.ImagePath != "" {
		table.AddRow("Image:", fmt.Sprintf("%s (%d bytes, sha256 %s)", r.ImagePath, r.ImageSize, r.ImageSHA256))
	}
	if r.ArchiveKey != "" {
		table.AddRow("Archived:", r.ArchiveKey)
	}
	table.AddRow("State:", r.State)
	for _, s := range r.Steps {
		result := "ok"
		if s.Err != nil {
			result = "failed"
			if kind, ok := core.KindOf(s.Err); ok {
				result = string(kind)
			}
		}
		table.AddRow("  "+s.Event+":", fmt.Sprintf("%s in %s", result, s.Duration.Round(time.Millisecond)))
	}
	fmt.Fprintln(w, table)
}

func printHint(w io.Writer, err error) {
	if hint := core.Hint(err); hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}
