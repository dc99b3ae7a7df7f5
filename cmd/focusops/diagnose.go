package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/focusops/health"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the health checks against OmniFocus",
	Long: `diagnose runs every health check once: OmniFocus reachability through
osascript, the circuit breaker, the cache and the process. It exits non-zero
when a required check is unhealthy.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newServer(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close(context.WithoutCancel(ctx))

		agg := s.Health()
		results := agg.CheckAll(ctx)

		data := pterm.TableData{{"Check", "Status", "Duration", "Message"}}
		for _, name := range agg.CheckerNames() {
			r := results[name]
			msg := r.Message
			if r.Error != nil {
				msg = r.Error.Error()
			}
			data = append(data, []string{name, statusText(r.Status), r.Duration.Round(time.Millisecond).String(), msg})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		pterm.Println()

		overall := agg.OverallStatus(results)
		pterm.Println("Overall: " + statusText(overall))
		if r, ok := results["omnifocus"]; ok && r.Status == health.StatusUnhealthy {
			pterm.Println()
			pterm.Println("OmniFocus could not be reached. Check that it is installed and running, and that")
			pterm.Println("automation access is granted in System Settings > Privacy & Security > Automation.")
		}
		if overall == health.StatusUnhealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func statusText(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return pterm.FgGreen.Sprint(s.String())
	case health.StatusDegraded:
		return pterm.FgYellow.Sprint(s.String())
	default:
		return pterm.FgRed.Sprint(s.String())
	}
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}
