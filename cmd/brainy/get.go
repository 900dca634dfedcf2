package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a noun by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	n, ok, err := s.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("not found: %s", args[0])
	}
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(n)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "id:        %s\ntype:      %s\nmetadata:  %v\n", n.ID, n.Type, n.Metadata)
	return nil
}
