package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brainyhq/brainy"
)

var (
	addType     string
	addMetadata string
	addVector   string
	addData     string
	addCreator  string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new noun",
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addType, "type", "", "noun type (required)")
	addCmd.Flags().StringVar(&addMetadata, "metadata", "", "metadata as a JSON object")
	addCmd.Flags().StringVar(&addVector, "vector", "", "embedding vector as comma-separated floats")
	addCmd.Flags().StringVar(&addData, "data", "", "opaque payload")
	addCmd.Flags().StringVar(&addCreator, "created-by", "", "creator identity")
	addCmd.MarkFlagRequired("type")
}

func runAdd(cmd *cobra.Command, args []string) error {
	vec, err := parseVector(addVector)
	if err != nil {
		return err
	}
	md, err := parseMetadata(addMetadata)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := s.Add(ctx, brainy.NounInput{
		Type:      brainy.NounType(addType),
		Vector:    vec,
		Metadata:  md,
		Data:      []byte(addData),
		CreatedBy: addCreator,
	})
	if err != nil {
		return err
	}
	return printNoun(cmd, n)
}

func parseVector(s string) ([]float32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector component %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func parseMetadata(s string) (brainy.Metadata, error) {
	if s == "" {
		return nil, nil
	}
	var md brainy.Metadata
	if err := json.Unmarshal([]byte(s), &md); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return md, nil
}

func printNoun(cmd *cobra.Command, n brainy.Noun) error {
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(n)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", n.ID, n.Type)
	return nil
}
