package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/instancer/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Show prints the configuration after defaults, the config file and
INSTANCER_* environment variables have been applied. Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configShowFormat string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().StringVarP(&configShowFormat, "format", "f", string(config.FormatYAML), "output format (yaml, toml)")
	_ = configShowCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(config.FormatYAML), string(config.FormatTOML)}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := cfg.Encode(config.Format(configShowFormat))
	if err != nil {
		return &ExitError{Code: ExitInvalidInput, Err: fmt.Errorf("--format: %w", err)}
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
