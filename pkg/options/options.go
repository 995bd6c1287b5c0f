// Package options holds one option struct per configuration concern.
// Each struct binds its own flags and validates itself; the command's
// aggregate options compose them into named flag sets.
package options

import (
	"github.com/spf13/pflag"
)

// IOptions is implemented by every option struct in this package.
type IOptions interface {
	// Validate checks the values entered on the command line or in the config file.
	Validate() []error

	// AddFlags binds the option fields to the flag set.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
