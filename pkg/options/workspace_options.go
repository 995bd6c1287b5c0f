package options

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"
)

var _ IOptions = (*WorkspaceOptions)(nil)

// WorkspaceOptions locates the per-device workspaces on disk.
type WorkspaceOptions struct {
	// Root is the directory that holds one sub-directory per device.
	Root string `json:"root" mapstructure:"root"`
}

// NewWorkspaceOptions creates a WorkspaceOptions with default values.
func NewWorkspaceOptions() *WorkspaceOptions {
	return &WorkspaceOptions{
		Root: "certs",
	}
}

func (o *WorkspaceOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if strings.TrimSpace(o.Root) == "" {
		errs = append(errs, errors.New("--workspace.root must not be empty"))
	}
	return errs
}

func (o *WorkspaceOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Root, "workspace.root", o.Root, "Directory holding one workspace folder per device.")
}
