package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"groundstation/internal/config"
	"groundstation/internal/link"
	"groundstation/internal/logging"
	"groundstation/internal/spacecraft"
	"groundstation/internal/telemetry"
)

var (
	scConfigPath string
	scSchemaPath string
	scListen     string
	scInterval   time.Duration
	scFormat     string
	scFraming    string
	scSeed       int64
	scLogLevel   string
)

var spacecraftCmd = &cobra.Command{
	Use:   "spacecraft",
	Short: "Run a simulated spacecraft",
	Long:  "spacecraft listens for a ground station, streams simulated telemetry to it and logs the commands it receives.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(scConfigPath, scSchemaPath)
		if err != nil {
			return err
		}
		applySpacecraftFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		format, err := telemetry.ParseFormat(cfg.Spacecraft.PayloadFormat)
		if err != nil {
			return err
		}
		framing, err := link.ParseFraming(cfg.Framing)
		if err != nil {
			return err
		}
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logging.NewWithWriter(cmd.OutOrStdout(), level))

		srv := spacecraft.NewServer(spacecraft.Options{
			Listen:       cfg.Spacecraft.Listen,
			Interval:     cfg.Spacecraft.TelemetryInterval,
			Format:       format,
			Framing:      framing,
			MaxFrameSize: cfg.BufferSize,
		}, telemetry.NewGenerator(cfg.Spacecraft.Seed))
		return srv.ListenAndServe(ctx)
	},
}

func applySpacecraftFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Spacecraft.Listen = scListen
	}
	if flags.Changed("interval") {
		cfg.Spacecraft.TelemetryInterval = scInterval
	}
	if flags.Changed("format") {
		cfg.Spacecraft.PayloadFormat = scFormat
	}
	if flags.Changed("framing") {
		cfg.Framing = scFraming
	}
	if flags.Changed("seed") {
		cfg.Spacecraft.Seed = scSeed
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = scLogLevel
	}
}

func init() {
	spacecraftCmd.Flags().StringVar(&scConfigPath, "config", "", "Path to configuration YAML")
	spacecraftCmd.Flags().StringVar(&scSchemaPath, "schema", "", "Path to CUE schema file (defaults to the built-in schema)")
	spacecraftCmd.Flags().StringVar(&scListen, "listen", ":5000", "Address to listen on")
	spacecraftCmd.Flags().DurationVar(&scInterval, "interval", 2*time.Second, "Telemetry emit interval")
	spacecraftCmd.Flags().StringVar(&scFormat, "format", "json", "Payload format: json or literal")
	spacecraftCmd.Flags().StringVar(&scFraming, "framing", config.DefaultFraming, "Framing: line, length or raw")
	spacecraftCmd.Flags().Int64Var(&scSeed, "seed", 0, "Random seed (0 seeds from the clock)")
	spacecraftCmd.Flags().StringVar(&scLogLevel, "log-level", "info", "Log level: debug, info, warn or error")
}
