package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"redub/internal/config"
	"redub/internal/queue"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
}

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".mov":  {},
	".avi":  {},
	".webm": {},
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Enqueue images or videos for localization",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}
					info, err := os.Stat(path)
					if err != nil {
						return fmt.Errorf("inspect %q: %w", arg, err)
					}
					if info.IsDir() {
						return fmt.Errorf("%q is a directory; enqueue files individually", arg)
					}

					kind, err := resolveKind(path, kindFlag)
					if err != nil {
						return err
					}
					item, err := store.NewItem(cmd.Context(), path, kind)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Added %s #%d: %s\n", kind, item.ID, item.Title)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Force media kind (image or video) instead of inferring from the extension")
	return cmd
}

func resolveKind(path, override string) (queue.MediaKind, error) {
	if strings.TrimSpace(override) != "" {
		kind, ok := queue.ParseMediaKind(override)
		if !ok {
			return "", fmt.Errorf("unknown media kind %q (use image or video)", override)
		}
		return kind, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := imageExtensions[ext]; ok {
		return queue.MediaImage, nil
	}
	if _, ok := videoExtensions[ext]; ok {
		return queue.MediaVideo, nil
	}
	return "", fmt.Errorf("cannot infer media kind for %q; pass --kind image or --kind video", path)
}
