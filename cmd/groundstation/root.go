package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "groundstation",
	Short:        "Spacecraft ground station client",
	Long:         "groundstation polls a spacecraft for telemetry, plots it and sends orbit commands. It also ships a spacecraft simulator for local runs.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(spacecraftCmd)
	rootCmd.AddCommand(decodeCmd)
}
