package cmd

import (
	"flag"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/nibzard/todos-go/internal/config"
	"github.com/nibzard/todos-go/internal/kv"
)

// configCommand prints the effective configuration and where each value
// came from.
func (a *app) configCommand(args []string) error {
	fs := flag.NewFlagSet("todos config", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	example := fs.Bool("example", false, "Print an example configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %v", rest)
	}
	if *example {
		fmt.Fprint(a.out, config.ExampleConfig())
		return nil
	}

	cws := a.cws
	fmt.Fprintln(a.out, "Config files:")
	if len(cws.Files) == 0 {
		fmt.Fprintln(a.out, "  (none)")
	}
	for _, f := range cws.Files {
		fmt.Fprintf(a.out, "  %s\n", f)
	}
	fmt.Fprintln(a.out)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, pair := range configValues(cws.Config) {
		fmt.Fprintf(tw, "%s\t%s\t(%s)\n", pair[0], pair[1], cws.Sources[pair[0]])
	}
	return tw.Flush()
}

// configValues returns field/value pairs in the order of the config file.
// Credentials in the DSN are not printed.
func configValues(cfg *config.Config) [][2]string {
	dsn := cfg.DSN
	if dsn != "" {
		if redacted, err := kv.RedactDSN(cfg.Backend, dsn); err == nil {
			dsn = redacted
		} else {
			dsn = "(set)"
		}
	}
	return [][2]string{
		{"backend", cfg.Backend},
		{"data_file", cfg.DataFile},
		{"dsn", dsn},
		{"table", cfg.Table},
		{"id_scheme", cfg.IDScheme},
		{"strict", strconv.FormatBool(cfg.Strict)},
		{"log_level", cfg.LogLevel},
		{"log_format", cfg.LogFormat},
		{"log_timestamps", strconv.FormatBool(cfg.LogTimestamps)},
		{"log_caller", strconv.FormatBool(cfg.LogCaller)},
		{"log_file", cfg.LogFile},
	}
}
