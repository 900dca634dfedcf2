package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brainyhq/brainy"
)

var (
	findVector string
	findWhere  string
	findLimit  int
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Run a fused vector/graph/metadata query",
	RunE:  runFind,
}

func init() {
	findCmd.Flags().StringVar(&findVector, "vector", "", "query vector as comma-separated floats")
	findCmd.Flags().StringVar(&findWhere, "where", "", "metadata filter as a JSON object")
	findCmd.Flags().IntVar(&findLimit, "limit", 10, "maximum results")
}

func runFind(cmd *cobra.Command, args []string) error {
	vec, err := parseVector(findVector)
	if err != nil {
		return err
	}
	var where brainy.WhereClause
	if findWhere != "" {
		if err := json.Unmarshal([]byte(findWhere), &where); err != nil {
			return fmt.Errorf("parse where: %w", err)
		}
	}

	ctx := cmd.Context()
	s, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	results, err := s.Find(ctx, brainy.FindQuery{Vector: vec, Where: where, Limit: findLimit})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.4f\t%s\n", r.ID, r.Score, r.Type)
	}
	return nil
}
