package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// NamedFlagSetOptions abstracts the options of an application: it declares
// the flags grouped by section, completes defaults and validates the result.
type NamedFlagSetOptions interface {
	// Flags returns the flags grouped by section.
	Flags() cliflag.NamedFlagSets

	// Complete fills in the values that derive from other options.
	Complete() error

	// Validate checks the options after flags, environment and config file
	// have been applied.
	Validate() error
}
