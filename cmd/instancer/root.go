package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/instancer/internal/adapters/logging"
	"github.com/felixgeelhaar/instancer/internal/config"
	"github.com/felixgeelhaar/instancer/internal/domain/checkpoint"
	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/tui"
)

// Exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
)

var (
	// Global flags
	cfgFile   string
	verbose   bool
	logFormat string

	// defaultConfigPath is read when --config is not given.
	defaultConfigPath = config.DefaultConfigPath
)

var rootCmd = &cobra.Command{
	Use:   "instancer",
	Short: "Provision application instances, resuming where the last run stopped",
	Long: `Instancer provisions a self-contained application instance on a Linux host:
system packages, a dedicated system user and database role, the source tree,
a Python runtime, a deploy key, the configuration file and a systemd service.

Every completed step is checkpointed under the instance name. When a run
fails or is interrupted, running the same install again skips the steps that
already completed and continues with the one that failed.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output, including every command run")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

// ExitError carries a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var inputErr *identity.InvalidInputError
	if errors.As(err, &inputErr) || errors.Is(err, tui.ErrAborted) {
		return ExitInvalidInput
	}
	return ExitFailure
}

// formatError returns a user-friendly error message.
// With verbose=false: shows the message and a suggestion.
// With verbose=true: also shows the underlying error chain.
func formatError(err error) string {
	var (
		inputErr *identity.InvalidInputError
		stepErr  *execution.StepExecutionError
		storeErr *checkpoint.StoreIOError
	)

	switch {
	case errors.As(err, &inputErr):
		msg := fmt.Sprintf("invalid %s: %s", inputErr.Field, inputErr.Reason)
		msg += fmt.Sprintf("\n\nSuggestion: pass a valid --%s or answer the prompt again", flagForField(inputErr.Field))
		if verbose && inputErr.Err != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", inputErr.Err)
		}
		return msg

	case errors.As(err, &stepErr):
		msg := fmt.Sprintf("step %d (%s) failed", stepErr.Index, stepErr.Label)
		if !verbose {
			msg += fmt.Sprintf(": %v", stepErr.Err)
		}
		msg += fmt.Sprintf("\n\nSuggestion: fix the cause and re-run the same install command to resume from step %d",
			stepErr.LastCompleted+1)
		if verbose {
			msg += fmt.Sprintf("\n\nTechnical details: %+v", stepErr.Err)
		}
		return msg

	case errors.As(err, &storeErr):
		msg := err.Error()
		msg += "\n\nSuggestion: check the checkpoint backend settings (instancer config show); " +
			"re-running repeats at most the step that could not be recorded"
		return msg
	}

	return err.Error()
}

func flagForField(field string) string {
	if field == identity.FieldAddonsURL {
		return "addons-url"
	}
	return field
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// loadConfig reads the effective configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, _, err := config.Load(config.LoadOptions{Path: cfgFile, DefaultPath: defaultConfigPath})
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	switch logFormat {
	case "":
	case "text", "json":
		cfg.Log.Format = logFormat
	default:
		return nil, &ExitError{Code: ExitInvalidInput, Err: fmt.Errorf("unknown --log-format %q: use text or json", logFormat)}
	}
	return cfg, nil
}

// newLogger builds the console logger described by cfg.
func newLogger(cfg *config.Config, w io.Writer) (ports.Logger, error) {
	level, err := ports.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewConsoleLogger(
		logging.WithOutput(w),
		logging.WithLevel(level),
		logging.WithJSONFormat(cfg.Log.Format == "json"),
		logging.WithPrefix("instancer"),
	), nil
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"text\tHuman-readable lines",
			"json\tOne JSON object per line",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}
