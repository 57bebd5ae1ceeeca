package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/queue"
	"redub/internal/stage"
	"redub/internal/workflow"
)

func newImageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "image <file>",
		Short: "Localize a single image without touching the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			handler, err := workflow.NewImageHandler(cfg, logger)
			if err != nil {
				return err
			}
			return processOnce(cmd, handler, args[0], queue.MediaImage)
		},
	}
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "video <file>",
		Short: "Dub a single video without touching the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			return processOnce(cmd, workflow.NewVideoHandler(cfg, logger), args[0], queue.MediaVideo)
		},
	}
}

func processOnce(cmd *cobra.Command, handler stage.Handler, arg string, kind queue.MediaKind) error {
	path, err := config.ExpandPath(arg)
	if err != nil {
		return err
	}
	item := &queue.Item{
		RunID:      uuid.NewString(),
		SourcePath: path,
		Kind:       kind,
		Status:     queue.StatusProcessing,
	}
	if err := handler.Prepare(cmd.Context(), item); err != nil {
		return err
	}
	if err := handler.Execute(cmd.Context(), item); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", item.OutputPath)
	if item.UsedFallback {
		fmt.Fprintln(out, "Fallback compositing was used")
	}
	if item.CostEstimate > 0 {
		fmt.Fprintf(out, "Estimated API cost: %s\n", formatCost(item.CostEstimate))
	}
	if len(item.Warnings) > 0 {
		fmt.Fprintf(out, "Warnings:\n  %s\n", strings.Join(item.Warnings, "\n  "))
	}
	return nil
}
