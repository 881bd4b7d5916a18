package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"recurcal/internal/config"
	"recurcal/internal/ics"
	appLog "recurcal/internal/log"
	"recurcal/internal/recurrence"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		feedURL string
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "import [file.ics]",
		Short: "Read recurring events from an ICS feed",
		Long: `Read the recurring events of an ICS file or feed and print them as
schedule YAML. With --save they are appended to the config file.

Only RRULEs that map onto daily, weekly, monthly or yearly recurrences
are imported; others are skipped with a log line.

Examples:
  recurcal import holidays.ics
  recurcal import --url https://example.com/team.ics --save`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				body []byte
				err  error
			)
			switch {
			case feedURL != "" && len(args) == 1:
				return errors.New("give either a file or --url, not both")
			case feedURL != "":
				body, err = ics.NewFetcher(nil).Fetch(cmd.Context(), feedURL)
			case len(args) == 1:
				body, err = os.ReadFile(args[0])
			default:
				return errors.New("a file or --url is required")
			}
			if err != nil {
				return err
			}

			schedules, err := ics.ParseSchedules(body)
			if err != nil {
				return err
			}

			imported := make([]config.ScheduleConfig, 0, len(schedules))
			for _, s := range schedules {
				imported = append(imported, config.ScheduleConfig{
					ID:         s.ID,
					Name:       s.Name,
					Recurrence: recurrence.DefinitionOf(s.Recurrence),
				})
			}

			if save {
				conf, err := opts.loadConfig()
				if err != nil {
					return err
				}
				conf.Schedules = append(conf.Schedules, imported...)
				if err := conf.Save(opts.configPath); err != nil {
					return fmt.Errorf("save %s: %w", opts.configPath, err)
				}
				appLog.Info("schedules imported", "count", len(imported), "config_path", opts.configPath)
				return nil
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(map[string][]config.ScheduleConfig{"schedules": imported}); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&feedURL, "url", "", "ICS feed URL to fetch")
	cmd.Flags().BoolVar(&save, "save", false, "Append the imported schedules to the config file")
	return cmd
}
