package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/focusops/warmer"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Run the cache warmer once and report per category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newServer(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close(context.WithoutCancel(ctx))

		spinner, _ := pterm.DefaultSpinner.Start("Warming cache...")
		report := s.Warmer().Warm(ctx)
		if spinner != nil {
			_ = spinner.Stop()
		}

		renderWarmReport(report)
		if n := report.Failed(); n > 0 {
			return fmt.Errorf("%d of %d categories failed to warm", n, len(report.Results))
		}
		return nil
	},
}

func renderWarmReport(r warmer.Report) {
	data := pterm.TableData{{"Category", "Status", "Duration", "Bytes", "Error"}}
	for _, res := range r.Results {
		status := pterm.FgGreen.Sprint("ok")
		errText := ""
		if !res.OK() {
			status = pterm.FgRed.Sprint("failed")
			errText = res.Err.Error()
		}
		data = append(data, []string{
			res.Name,
			status,
			res.Duration.Round(time.Millisecond).String(),
			fmt.Sprint(res.Bytes),
			errText,
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Println()
	pterm.Printf("%d warmed, %d failed in %s\n", r.Succeeded(), r.Failed(), r.Duration.Round(time.Millisecond))
}

func init() {
	rootCmd.AddCommand(warmCmd)
}
