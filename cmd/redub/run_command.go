package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/queue"
	"redub/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every pending item in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				lockPath := filepath.Join(cfg.Paths.LogDir, "redub.lock")
				lock := flock.New(lockPath)
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire lock: %w", err)
				}
				if !ok {
					return errors.New("another redub run is already in progress")
				}
				defer lock.Unlock()

				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logging: %w", err)
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				opts := []workflow.ManagerOption{}
				if skipPreflight {
					opts = append(opts, workflow.WithoutPreflight())
				}
				manager := workflow.NewManager(cfg, store, logger, opts...)
				if err := manager.RegisterDefaultHandlers(); err != nil {
					return err
				}

				if watch {
					return manager.Watch(runCtx)
				}

				summary, err := manager.Run(runCtx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Processed %d item(s), %d failed, %d deferred in %s\n",
					summary.Processed, summary.Failed, summary.Deferred,
					summary.Duration.Round(time.Second))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip startup readiness checks")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep polling for new work after the queue drains")
	return cmd
}
