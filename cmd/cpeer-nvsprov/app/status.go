package app

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"cloupeer.io/nvsprov/cmd/cpeer-nvsprov/app/options"
	"cloupeer.io/nvsprov/internal/nvsprov/workspace"
)

func newStatusCommand(opts *options.ProvisionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List the device workspaces with their credential and image state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := workspace.NewManager(opts.WorkspaceOptions.Root)
			list, err := m.List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No workspaces in %s.\n", m.Root())
				return nil
			}

			table := uitable.New()
			table.MaxColWidth = 60
			table.AddRow("DEVICE", "CERT", "KEY", "HV", "IMAGE", "GENERATED")
			for _, s := range list {
				image, generated := "-", "-"
				if s.HasImage() {
					image = fmt.Sprintf("%d B", s.ImageSize)
					generated = s.ImageModTime.Format("2006-01-02 15:04:05")
				}
				hv := s.HardwareVersion
				if hv == "" {
					hv = "-"
				}
				table.AddRow(s.ID, ready(s.CertReady), ready(s.KeyReady), hv, image, generated)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func ready(ok bool) string {
	if ok {
		return "ready"
	}
	return "empty"
}
