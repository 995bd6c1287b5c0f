// Package app builds cobra based command line applications whose options
// can be set by flags, environment variables and a config file.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"

	"cloupeer.io/nvsprov/pkg/log"
)

// RunFunc is the main function of an application.
type RunFunc func() error

// ExitCodeFunc maps the error returned by the command to a process exit code.
type ExitCodeFunc func(err error) int

// Exit codes used when no ExitCodeFunc is configured.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// App is the main structure of a cli application.
type App struct {
	name        string
	shortDesc   string
	description string

	options  NamedFlagSetOptions
	logOpts  *log.Options
	run      RunFunc
	args     cobra.PositionalArgs
	commands []*cobra.Command
	exitCode ExitCodeFunc

	configFile string
	viper      *viper.Viper
	cmd        *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithOptions sets the application options.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithLogOptions makes the application initialize the global logger from
// opts once the configuration is loaded.
func WithLogOptions(opts *log.Options) Option {
	return func(a *App) { a.logOpts = opts }
}

// WithRunFunc sets the function run by the root command.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.run = run }
}

// WithDescription sets the long description of the root command.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return &UsageError{Err: fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)}
				}
			}
			return nil
		}
	}
}

// WithCommands adds subcommands. They share the options of the application.
func WithCommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.commands = append(a.commands, cmds...) }
}

// WithExitCode sets how errors map to exit codes.
func WithExitCode(fn ExitCodeFunc) Option {
	return func(a *App) { a.exitCode = fn }
}

// NewApp creates a new application instance based on the given options.
func NewApp(name string, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
		viper:     viper.New(),
	}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command returns the root cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Viper returns the configuration store of the application.
func (a *App) Viper() *viper.Viper {
	return a.viper
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = false
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	var fss cliflag.NamedFlagSets
	if a.options != nil {
		fss = a.options.Flags()
	}
	a.addConfigFlag(fss.FlagSet("global"))
	for _, f := range fss.FlagSets {
		cmd.PersistentFlags().AddFlagSet(f)
	}

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		return a.prepare(c)
	}
	if a.run != nil {
		cmd.RunE = func(*cobra.Command, []string) error {
			return a.run()
		}
	}
	for _, sub := range a.commands {
		sub.SilenceUsage = true
		cmd.AddCommand(sub)
	}

	cliflag.SetUsageAndHelpFunc(cmd, fss, 0)
	a.cmd = cmd
}

// prepare loads the configuration into the options, validates them and
// initializes logging. It runs before the root command and every subcommand.
func (a *App) prepare(cmd *cobra.Command) error {
	if err := a.loadConfig(cmd.Flags()); err != nil {
		return err
	}
	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return &UsageError{Err: err}
		}
	}
	if a.logOpts != nil {
		log.Init(a.logOpts)
	}
	return nil
}

// Execute runs the command line and returns the exit code.
func (a *App) Execute(args []string) int {
	a.cmd.SetArgs(args)
	err := a.cmd.Execute()
	_ = log.Sync()
	if err == nil {
		return 0
	}

	fmt.Fprintf(a.cmd.ErrOrStderr(), "Error: %v\n", err)
	if IsUsageError(err) {
		return ExitUsage
	}
	if a.exitCode != nil {
		return a.exitCode(err)
	}
	return ExitFailure
}

// Run launches the application with the process arguments and exits.
func (a *App) Run() {
	os.Exit(a.Execute(os.Args[1:]))
}
