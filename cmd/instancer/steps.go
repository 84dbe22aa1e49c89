package main

import (
	"github.com/spf13/cobra"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the provisioning steps in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := openSession(cmd.Context(), cmd.OutOrStdout(), true)
		if err != nil {
			return err
		}
		defer sess.Close()

		sess.installer.PrintSteps()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stepsCmd)
}
