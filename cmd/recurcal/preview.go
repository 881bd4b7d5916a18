package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"recurcal/internal/config"
	"recurcal/internal/ics"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

// previewFlags describes an ad-hoc recurrence given on the command line.
type previewFlags struct {
	pattern  string
	interval int
	start    string
	end      string
	days     []string
	monthly  string
	ordinal  string
	weekday  string
	maxDates int
}

func (f *previewFlags) definition(cmd *cobra.Command) recurrence.Definition {
	d := recurrence.Definition{
		Pattern:        recurrence.RecurrencePattern(strings.ToLower(f.pattern)),
		Interval:       f.interval,
		StartDate:      f.start,
		EndDate:        f.end,
		MonthlyPattern: recurrence.MonthlyPattern(strings.ToLower(f.monthly)),
		MonthlyOrdinal: recurrence.Ordinal(strings.ToLower(f.ordinal)),
		MonthlyWeekDay: recurrence.WeekDay(strings.ToLower(f.weekday)),
	}
	// --days given (even as "") means the weekday list is present.
	if cmd.Flags().Changed("days") {
		days := make([]recurrence.WeekDay, 0, len(f.days))
		for _, s := range f.days {
			if s = strings.TrimSpace(s); s != "" {
				days = append(days, recurrence.WeekDay(strings.ToLower(s)))
			}
		}
		d.WeeklyDays = &days
	}
	return d
}

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	var f previewFlags

	cmd := &cobra.Command{
		Use:   "preview [schedule-id]",
		Short: "Validate a recurrence and print its dates",
		Long: `Validate a recurrence and print the dates it generates.

With a schedule id the schedule is read from the config file; otherwise the
recurrence is built from flags.

Examples:
  recurcal preview rent
  recurcal preview --pattern weekly --interval 2 --start 2024-01-01 --days monday,wednesday
  recurcal preview --pattern monthly --monthly day-of-week --ordinal last --weekday friday --start 2025-01-01`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := opts.readConfig()
			if err != nil {
				return err
			}

			var def recurrence.Definition
			if len(args) == 1 {
				sc, ok := conf.Schedule(args[0])
				if !ok {
					return fmt.Errorf("schedule %q not found", args[0])
				}
				def = sc.Recurrence
			} else {
				if f.start == "" {
					return errors.New("either a schedule id or --start is required")
				}
				def = f.definition(cmd)
			}

			cfg, err := def.Config()
			if err != nil {
				return err
			}

			n := f.maxDates
			if n <= 0 {
				n = conf.MaxPreviewDates
			}
			n = min(n, config.MaxPreviewDates)

			p := model.NewPreview(cfg, n)
			printPreview(cmd.OutOrStdout(), p)
			if !p.IsValid {
				return errors.New("recurrence is not valid")
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.pattern, "pattern", string(recurrence.PatternDaily), "daily, weekly, monthly or yearly")
	fl.IntVar(&f.interval, "interval", 1, "Repeat every N periods")
	fl.StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD)")
	fl.StringVar(&f.end, "end", "", "Optional end date (YYYY-MM-DD)")
	fl.StringSliceVar(&f.days, "days", nil, "Weekdays for weekly rules, e.g. monday,wednesday")
	fl.StringVar(&f.monthly, "monthly", "", "Monthly rule: same-date or day-of-week")
	fl.StringVar(&f.ordinal, "ordinal", "", "first, second, third, fourth or last")
	fl.StringVar(&f.weekday, "weekday", "", "Weekday for day-of-week monthly rules")
	fl.IntVarP(&f.maxDates, "max", "n", 0, "Number of dates to print (default from config)")

	return cmd
}

func printPreview(w io.Writer, p model.Preview) {
	for _, finding := range p.Findings {
		fmt.Fprintf(w, "%s: %s: %s\n", finding.Severity, finding.Field, finding.Message)
	}
	if !p.IsValid {
		return
	}
	if rule, err := ics.RRuleFor(p.Config); err == nil {
		fmt.Fprintf(w, "RRULE:%s\n", rule)
	}
	for _, d := range p.GeneratedDates {
		fmt.Fprintf(w, "%s %s\n", recurrence.FormatDate(d), d.Weekday().String()[:3])
	}
}
