package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	appLog "recurcal/internal/log"
	"recurcal/internal/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP preview API",
		Long: `Run the HTTP API for previews, field validation and ICS export.

The config file is re-read on the configured refresh cron, so schedules
added with "import --save" or edited by hand are served without a restart.
The listen address and basic auth credentials keep their startup values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appLog.Info("recurcal starting", "version", version)

			conf, err := opts.loadConfig()
			if err != nil {
				return err
			}

			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				conf.Listen = listen
			}

			appLog.Info("effective config",
				"listen", conf.Listen,
				"log_level", conf.LogLevel,
				"max_preview_dates", conf.MaxPreviewDates,
				"refresh", conf.RefreshCron,
				"schedule_count", len(conf.Schedules),
			)

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			go func() {
				select {
				case sig := <-sigCh:
					appLog.Info("signal received, shutting down", "signal", sig.String())
					cancel()
				case <-ctx.Done():
				}
			}()

			srv := web.NewServer(conf, opts.configPath)

			sched := cron.New()
			if _, err := sched.AddFunc(conf.RefreshCron, srv.Refresh); err != nil {
				appLog.Error("invalid refresh cron", err, "spec", conf.RefreshCron)
				return err
			}
			sched.Start()
			defer func() {
				<-sched.Stop().Done()
			}()

			if err := srv.Run(ctx); err != nil {
				appLog.Error("http server stopped with error", err)
				return err
			}

			appLog.Info("recurcal exiting")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
