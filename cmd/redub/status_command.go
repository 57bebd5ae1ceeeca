package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"redub/internal/config"
	"redub/internal/preflight"
	"redub/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipServices bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show service readiness, tool availability, and queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()

				if !skipServices {
					rows := make([][]string, 0, 8)
					for _, result := range preflight.RunAll(cmd.Context(), cfg) {
						rows = append(rows, []string{result.Name, passFail(result.Passed), result.Detail})
					}
					fmt.Fprintln(out, "Services")
					fmt.Fprintln(out, renderTable(
						[]string{"Check", "Status", "Detail"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft},
					))
				}

				depRows := make([][]string, 0, 4)
				for _, status := range preflight.CheckSystemDeps(cfg) {
					state := "missing"
					if status.Available {
						state = "ok"
					} else if status.Optional {
						state = "missing (optional)"
					}
					depRows = append(depRows, []string{status.Name, status.Command, state, status.Description})
				}
				fmt.Fprintln(out, "Tools")
				fmt.Fprintln(out, renderTable(
					[]string{"Tool", "Command", "Status", "Purpose"},
					depRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))

				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Queue")
				fmt.Fprintln(out, renderTable(
					[]string{"Pending", "Processing", "Completed", "Failed", "Review"},
					[][]string{{
						strconv.Itoa(summary.Pending),
						strconv.Itoa(summary.Processing),
						strconv.Itoa(summary.Completed),
						strconv.Itoa(summary.Failed),
						strconv.Itoa(summary.Review),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
				))

				videos, err := store.CompletedVideoCount(cmd.Context())
				if err != nil {
					return err
				}
				if cfg.Workflow.VideoCap > 0 {
					fmt.Fprintf(out, "Videos dubbed: %d (cap %d per run)\n", videos, cfg.Workflow.VideoCap)
				} else {
					fmt.Fprintf(out, "Videos dubbed: %d\n", videos)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&skipServices, "skip-services", false, "Skip the remote service checks")
	return cmd
}

func passFail(passed bool) string {
	if passed {
		return "pass"
	}
	return "FAIL"
}
