package options

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

var _ IOptions = (*MetricsOptions)(nil)

// MetricsOptions configures the Prometheus textfile the run statistics are written to.
type MetricsOptions struct {
	// Textfile is a node_exporter textfile collector path (must end in .prom).
	// Empty disables metrics output.
	Textfile string `json:"textfile" mapstructure:"textfile"`
}

// NewMetricsOptions creates a MetricsOptions with default values.
func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{}
}

func (o *MetricsOptions) Validate() []error {
	if o == nil || o.Textfile == "" {
		return nil
	}
	if !strings.HasSuffix(o.Textfile, ".prom") {
		return []error{fmt.Errorf("--metrics.textfile must end in .prom, got %q", o.Textfile)}
	}
	return nil
}

func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Textfile, "metrics.textfile", o.Textfile, "Write run metrics to this Prometheus textfile (e.g. /var/lib/node_exporter/nvsprov.prom).")
}
