// Package cmd defines the chargewatch command line interface.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/logger"
	"github.com/tphakala/chargewatch-go/internal/monitor"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chargewatch",
	Short: "Charging site safety monitor",
	Long: "chargewatch samples site sensors, watches camera streams and " +
		"turns threshold breaches and detections into alerts delivered over " +
		"email, SMS, webhooks and push.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd.Context())
	},
}

// Execute runs the CLI.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
}

func runMonitor(ctx context.Context) error {
	bootstrap := logger.NewSlogLogger(os.Stderr, logger.LogLevelInfo, nil)
	settings := conf.Load(configPath, bootstrap)

	log := logger.NewSlogLogger(os.Stderr, settings.ParseLogLevel(), nil)
	m, err := monitor.New(settings, log)
	if err != nil {
		return err
	}
	return m.Run(ctx)
}
