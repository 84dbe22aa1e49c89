package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status NAME",
	Short: "Show the recorded progress of an instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var resetCmd = &cobra.Command{
	Use:   "reset NAME",
	Short: "Forget the recorded progress of an instance",
	Long: `Reset removes the checkpoint of an instance, so the next install runs
every step from the beginning. Nothing on the host is undone.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx, cmd.OutOrStdout(), false)
	if err != nil {
		return err
	}
	defer sess.Close()

	st, err := sess.installer.Status(ctx, args[0])
	if err != nil {
		return err
	}
	sess.installer.PrintStatus(st)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := openSession(ctx, cmd.OutOrStdout(), false)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.installer.Reset(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint of %s cleared. The next install starts from step 1.\n", args[0])
	return nil
}
