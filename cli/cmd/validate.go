package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/BDNK1/credflow/runtime"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Check the configuration and flow definition",
	Long: `validate-config loads the configuration and the flow definition, reports
any problem and prints the resulting step order.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := runtime.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to load flow: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "flow %s → %s (timeout %s, transition delay %s)\n\n",
		app.Flow.ID, cfg.BaseURL, cfg.Timeout, cfg.TransitionDelay)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTEP\tINPUT\tENDPOINT\tFIELDS\tDELAYED")
	for i, step := range app.Flow.Steps {
		kind := string(step.Input.Kind)
		if step.Input.Length > 0 {
			kind = fmt.Sprintf("%s(%d)", kind, step.Input.Length)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n",
			i+1, step.ID, kind, step.Endpoint,
			strings.Join(step.Input.FieldNames(), ","), step.Delayed)
	}
	fmt.Fprintf(w, "%d\t%s\t\t\t\t\n", len(app.Flow.Steps)+1, runtime.StepTerminal)
	return w.Flush()
}
