package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"groundstation/internal/admin"
	"groundstation/internal/config"
	"groundstation/internal/logging"
	"groundstation/internal/station"
)

var (
	runConfigPath string
	runSchemaPath string
	runAddr       string
	runInterval   time.Duration
	runSimulate   bool
	runReconnect  bool
	runDisplay    string
	runAdminAddr  string
	runLogLevel   string
	runLogFile    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ground station loop",
	Long:  "run connects to the spacecraft, then receives and plots telemetry and sends the orbit command once per poll interval until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigPath, runSchemaPath)
		if err != nil {
			return err
		}
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		disp, err := newDisplay(runDisplay, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer disp.Close()
		logOut, closeLog := newLogOutput(disp.LogWriter, runLogFile)
		defer closeLog()
		log := logging.NewWithWriter(logOut, level)
		ctx = logging.NewContext(ctx, log)

		st, err := station.New(cfg, station.Options{Renderer: disp.Renderer, OnCycle: disp.OnCycle})
		if err != nil {
			return err
		}
		if runAdminAddr != "" {
			srv := admin.NewServer(st)
			go func() {
				if err := srv.Start(ctx, runAdminAddr); err != nil {
					log.Error("admin server failed", "error", err)
				}
			}()
		}
		return st.Run(ctx)
	},
}

// applyRunFlags overrides cfg with the flags set on the command line.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		host, port, err := net.SplitHostPort(runAddr)
		if err != nil {
			return fmt.Errorf("invalid --addr %q: %w", runAddr, err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid --addr port %q: %w", port, err)
		}
		cfg.Address, cfg.Port = host, p
	}
	if flags.Changed("interval") {
		cfg.PollInterval = runInterval
	}
	if flags.Changed("simulate") {
		cfg.Simulate = runSimulate
	}
	if flags.Changed("reconnect") {
		cfg.Reconnect = runReconnect
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = runLogLevel
	}
	return cfg.Validate()
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to ground station configuration YAML")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "", "Path to CUE schema file (defaults to the built-in schema)")
	runCmd.Flags().StringVar(&runAddr, "addr", "", "Spacecraft address as host:port")
	runCmd.Flags().DurationVar(&runInterval, "interval", config.DefaultPollInterval, "Poll interval (e.g. 500ms, 10s)")
	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "Generate telemetry locally instead of reading it from the link")
	runCmd.Flags().BoolVar(&runReconnect, "reconnect", false, "Redial the spacecraft after it disconnects")
	runCmd.Flags().StringVar(&runDisplay, "display", "auto", "Plot display: auto, tui, text or none")
	runCmd.Flags().StringVar(&runAdminAddr, "admin-addr", "", "Serve the status endpoint on this address (e.g. :8080)")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Also write logs to this rotating file")
}
