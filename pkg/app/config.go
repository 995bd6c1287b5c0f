package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const configFlagName = "config"

// addConfigFlag registers --config and makes every flag settable through the
// environment as PREFIX_SECTION_NAME, e.g. NVSPROV_TOOLS_PYTHON for --tools.python.
func (a *App) addConfigFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&a.configFile, configFlagName, "c", a.configFile,
		"Read configuration from the specified `FILE`, JSON, TOML and YAML are supported.")

	a.viper.SetEnvPrefix(envPrefix(a.name))
	a.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.viper.AutomaticEnv()
}

// loadConfig applies, in increasing precedence, the config file, the
// environment and the command line to the options.
func (a *App) loadConfig(fs *pflag.FlagSet) error {
	if a.configFile != "" {
		a.viper.SetConfigFile(a.configFile)
		if err := a.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read configuration file %s: %w", a.configFile, err)
		}
	}

	if err := a.viper.BindPFlags(fs); err != nil {
		return err
	}
	if a.options == nil {
		return nil
	}
	if err := a.viper.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}

func envPrefix(name string) string {
	name = strings.TrimPrefix(name, "cpeer-")
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// UsageError marks errors caused by a malformed command line.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// IsUsageError reports whether err stems from the command line.
func IsUsageError(err error) bool {
	var u *UsageError
	return errors.As(err, &u)
}
