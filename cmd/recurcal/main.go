package main

import (
	"os"

	"github.com/spf13/cobra"

	"recurcal/internal/config"
	appLog "recurcal/internal/log"
)

const version = "0.1.0"

// rootOptions holds persistent flag values shared by all subcommands.
type rootOptions struct {
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "recurcal",
		Short: "Recurring date generator and validator",
		Long: `recurcal expands recurrence rules (daily, weekly, monthly, yearly)
into concrete calendar dates and validates them.

Serve the preview API:
  recurcal serve

Preview an ad-hoc rule:
  recurcal preview --pattern monthly --start 2024-01-31`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				appLog.SetLevel(appLog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "/etc/recurcal/config.yaml", "Path to config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newPreviewCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
	)
	return root
}

// loadConfig loads the config file, creating a default one on first run,
// and applies its log level unless --verbose already forced debug output.
// serve and import --save use it.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	return o.applyConfig(config.Load(o.configPath))
}

// readConfig is loadConfig for read-only commands: a missing file yields the
// defaults and nothing is written.
func (o *rootOptions) readConfig() (*config.Config, error) {
	return o.applyConfig(config.ReadOrDefault(o.configPath))
}

func (o *rootOptions) applyConfig(conf *config.Config, err error) (*config.Config, error) {
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", o.configPath)
		return nil, err
	}
	if !o.verbose {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}
	return conf, nil
}
