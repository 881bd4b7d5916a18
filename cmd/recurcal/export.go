package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"recurcal/internal/config"
	"recurcal/internal/ics"
	"recurcal/internal/model"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var maxDates int

	cmd := &cobra.Command{
		Use:   "export <schedule-id>",
		Short: "Write a schedule's dates as an ICS calendar",
		Long: `Write the dates of a configured schedule to stdout as an ICS calendar
with one all-day event per date.

Example:
  recurcal export rent > rent.ics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := opts.readConfig()
			if err != nil {
				return err
			}

			sc, ok := conf.Schedule(args[0])
			if !ok {
				return fmt.Errorf("schedule %q not found", args[0])
			}
			rc, err := sc.Recurrence.Config()
			if err != nil {
				return fmt.Errorf("schedule %q: %w", sc.ID, err)
			}

			n := maxDates
			if n <= 0 {
				n = conf.MaxPreviewDates
			}
			p := model.NewPreview(rc, min(n, config.MaxPreviewDates))
			if !p.IsValid {
				printPreview(cmd.ErrOrStderr(), p)
				return fmt.Errorf("schedule %q is not valid", sc.ID)
			}

			sched := model.Schedule{ID: sc.ID, Name: sc.Name, Recurrence: rc}
			_, err = io.WriteString(cmd.OutOrStdout(), ics.Export(sched, p.GeneratedDates, time.Now()))
			return err
		},
	}

	cmd.Flags().IntVarP(&maxDates, "max", "n", 0, "Number of events to export (default from config)")
	return cmd
}
