package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/instancer/internal/domain/execution"
	"github.com/felixgeelhaar/instancer/internal/domain/identity"
	"github.com/felixgeelhaar/instancer/internal/metrics"
	"github.com/felixgeelhaar/instancer/internal/ports"
	"github.com/felixgeelhaar/instancer/internal/tui"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Provision an instance, resuming from its last checkpoint",
	Long: `Install runs the provisioning steps for one instance in order.

After each step the step number is recorded under the instance name. If a
step fails or the run is interrupted, running install again with the same
name skips every recorded step and continues with the next one. When all
steps have completed the record is removed.

Values not given by flag are prompted for.`,
	Example: `  instancer install --name erp --version 17.0 --port 8069 \
      --addons-url git@github.com:acme/addons.git
  instancer install --name erp --tui`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

var (
	installName            string
	installVersion         string
	installPort            string
	installAddonsURL       string
	installTUI             bool
	installMetricsTextfile string
)

// newPrompter is replaced in tests.
var newPrompter = func(in io.Reader, out io.Writer) tui.Prompter {
	inFile, inOK := in.(*os.File)
	outFile, outOK := out.(*os.File)
	if inOK && outOK {
		return tui.NewPrompter(inFile, outFile)
	}
	return tui.NewLinePrompter(in, out)
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().StringVar(&installName, "name", "", "instance name (system user, database role, service)")
	installCmd.Flags().StringVar(&installVersion, "version", "", "application branch or tag, e.g. 17.0")
	installCmd.Flags().StringVar(&installPort, "port", "", "HTTP port")
	installCmd.Flags().StringVar(&installAddonsURL, "addons-url", "", "git URL of the custom addons repository")
	installCmd.Flags().BoolVar(&installTUI, "tui", false, "show a live progress view (terminal only)")
	installCmd.Flags().StringVar(&installMetricsTextfile, "metrics-textfile", "", "write run metrics to this node exporter textfile")
}

func runInstall(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	in := identity.Input{
		Name:          installName,
		Version:       installVersion,
		Port:          installPort,
		AddonsRepoURL: installAddonsURL,
	}

	if err := newPrompter(cmd.InOrStdin(), out).Complete(ctx, &in); err != nil {
		return err
	}

	if err := requireRoot(); err != nil {
		return err
	}

	useTUI := installTUI && isTerminal(out)
	sess, err := openSession(ctx, out, useTUI)
	if err != nil {
		return err
	}
	defer sess.Close()

	if _, err := sess.installer.Resolve(in); err != nil {
		return err
	}

	var recorder *metrics.Recorder
	if installMetricsTextfile != "" {
		recorder = metrics.NewRecorder()
		sess.installer.WithObserver(recorder)
	}

	var report *execution.Report
	if useTUI {
		report, err = tui.RunWithProgress(ctx, func(ctx context.Context, obs execution.Observer) (*execution.Report, error) {
			return sess.installer.WithObserver(obs).Install(ctx, in)
		}, tui.ProgressOptions{Input: cmd.InOrStdin(), Output: out})
	} else {
		report, err = sess.installer.Install(ctx, in)
		sess.installer.PrintReport(report)
	}

	if recorder != nil && report != nil {
		if werr := recorder.WriteTextfile(installMetricsTextfile); werr != nil {
			sess.logger.Warn(ctx, "could not write metrics textfile",
				ports.F("path", installMetricsTextfile), ports.Err(werr))
		}
	}

	if err != nil {
		return fmt.Errorf("install %s: %w", in.Name, err)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && tui.IsTerminal(f)
}
