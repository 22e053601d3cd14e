package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"groundstation/internal/telemetry"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [payload]",
	Short: "Decode a telemetry payload",
	Long:  "decode parses a telemetry payload with the safe decoder and prints the record as JSON. Without an argument the payload is read from stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload []byte
		if len(args) == 1 {
			payload = []byte(args[0])
		} else {
			b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), telemetry.MaxPayloadSize+1))
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			payload = b
		}
		rec, err := telemetry.Parse(payload)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}
