package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brainyhq/brainy"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches and commits",
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List branches",
	RunE:  runBranchList,
}

var (
	commitMessage string
	commitAuthor  string
)

var branchCommitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit the current branch's live state",
	RunE:  runBranchCommit,
}

var branchForkCmd = &cobra.Command{
	Use:   "fork <name>",
	Short: "Fork a new branch from the current branch's HEAD",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchFork,
}

var branchCheckoutCmd = &cobra.Command{
	Use:   "checkout <name>",
	Short: "Switch the live store to branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runBranchCheckout,
}

func init() {
	branchCommitCmd.Flags().StringVar(&commitMessage, "message", "", "commit message")
	branchCommitCmd.Flags().StringVar(&commitAuthor, "author", "", "commit author")

	branchCmd.AddCommand(branchListCmd)
	branchCmd.AddCommand(branchCommitCmd)
	branchCmd.AddCommand(branchForkCmd)
	branchCmd.AddCommand(branchCheckoutCmd)
}

func runBranchList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	names, err := s.ListBranches(ctx, false)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runBranchCommit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	hash, err := s.Commit(ctx, commitMessage, commitAuthor)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func runBranchFork(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	ref, err := s.Fork(ctx, args[0], brainy.ForkOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ref.Name)
	return nil
}

func runBranchCheckout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	return s.Checkout(ctx, args[0])
}
