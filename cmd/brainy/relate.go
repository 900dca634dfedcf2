package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brainyhq/brainy"
)

var (
	relateFrom string
	relateTo   string
	relateType string
)

var relateCmd = &cobra.Command{
	Use:   "relate",
	Short: "Create a verb between two existing nouns",
	RunE:  runRelate,
}

func init() {
	relateCmd.Flags().StringVar(&relateFrom, "from", "", "source noun id (required)")
	relateCmd.Flags().StringVar(&relateTo, "to", "", "target noun id (required)")
	relateCmd.Flags().StringVar(&relateType, "type", "", "verb type (required)")
	relateCmd.MarkFlagRequired("from")
	relateCmd.MarkFlagRequired("to")
	relateCmd.MarkFlagRequired("type")
}

func runRelate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	v, err := s.Relate(ctx, brainy.VerbInput{
		Type: brainy.VerbType(relateType),
		From: relateFrom,
		To:   relateTo,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s --%s--> %s\n", v.ID, v.From, v.Type, v.To)
	return nil
}
