package app

import (
	"context"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"cloupeer.io/nvsprov/cmd/cpeer-nvsprov/app/options"
	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/internal/nvsprov/serialport"
)

func newScanCommand(opts *options.ProvisionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [PORT...]",
		Short: "Read the MAC address of the devices on the given or all candidate serial ports",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports := args
			if len(ports) == 0 {
				ports = serialport.ListCandidatePorts()
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No serial ports found.")
				return nil
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

			results, err := p.Scanner.Scan(signalContext(), ports)
			if err != nil {
				return err
			}

			table := uitable.New()
			table.MaxColWidth = 60
			table.AddRow("PORT", "MAC", "WORKSPACE", "STATUS")
			for _, r := range results {
				if r.Err != nil {
					table.AddRow(r.Port, "-", "-", scanFailure(r.Err))
					continue
				}
				table.AddRow(r.Port, r.DeviceID, p.Workspaces.Workspace(r.DeviceID).Dir, "ok")
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func scanFailure(err error) string {
	if kind, ok := core.KindOf(err); ok {
		return string(kind)
	}
	return err.Error()
}
