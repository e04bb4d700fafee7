package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BDNK1/credflow/cli/internal/telemetry"
	"github.com/BDNK1/credflow/cli/internal/terminal"
	httpgw "github.com/BDNK1/credflow/plugins/http"
	"github.com/BDNK1/credflow/runtime"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sign-in flow in the terminal",
	Long: `Run prompts for each step of the flow, validates the input locally and
submits it to the verification service.

Example:
  credflow run --base-url https://verify.example.com
  credflow run --config credflow.yaml
`,
	Args: cobra.NoArgs,
	RunE: runFlow,
}

func runFlow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := telemetry.SetupLogger(os.Stderr, cfg.Debug)

	app, err := runtime.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to load flow: %w", err)
	}

	gateway, err := httpgw.NewGateway(httpgw.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Debug:   cfg.Debug,
	}, logger)
	if err != nil {
		return err
	}

	runner := terminal.NewRunner(terminal.NewSurveyDriver(), cmd.OutOrStdout(), logger)

	exec, err := app.NewExecution(gateway, runner, runtime.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting flow", "flow", app.Flow.ID, "execution", exec.ID, "base_url", cfg.BaseURL)

	if err := runner.Run(ctx, exec); err != nil {
		if errors.Is(err, terminal.ErrInterrupted) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
			return nil
		}
		return err
	}
	return nil
}
