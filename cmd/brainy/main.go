// Package main provides the brainy CLI: a thin inspection/admin wrapper
// around the embeddable store, for local use against a filesystem-backed
// data directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brainyhq/brainy"
)

var (
	dataDir    string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "brainy",
	Short: "Inspect and administer a brainy knowledge-graph store",
	Long: `brainy is a CLI for local inspection and administration of a
brainy data directory: adding/finding entities, relating them, branch
and commit management, and store statistics.

Examples:
  brainy add --type Person --metadata '{"name":"alice"}'
  brainy find --where '{"name":"alice"}'
  brainy branch list
  brainy stats`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", ".brainy", "store data directory")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON instead of a table")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(relateCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openStore opens the store at --data-dir, always flushing and closing it
// when the caller is done.
func openStore(ctx context.Context) (*brainy.Store, func(), error) {
	s, err := brainy.Open(ctx, brainy.Options{DataDir: dataDir})
	if err != nil {
		return nil, nil, fmt.Errorf("open store at %s: %w", dataDir, err)
	}
	closeFn := func() {
		if err := s.Flush(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "flush:", err)
		}
		if err := s.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close:", err)
		}
	}
	return s, closeFn, nil
}
