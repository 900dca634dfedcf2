package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory and telemetry statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	mem := s.GetMemoryStats()
	snap := s.TelemetrySnapshot()

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Memory    interface{} `json:"memory"`
			Telemetry interface{} `json:"telemetry"`
		}{mem, snap})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "memory basis:     %s\n", mem.Limits.Basis)
	fmt.Fprintf(cmd.OutOrStdout(), "total bytes:      %d\n", mem.Memory.TotalBytes)
	fmt.Fprintf(cmd.OutOrStdout(), "max query limit:  %d\n", mem.Limits.MaxQueryLimit)
	fmt.Fprintf(cmd.OutOrStdout(), "query fusions:    %d\n", snap.QueryFusions)
	return nil
}
