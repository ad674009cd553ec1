package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imbo/imbo-cli/internal/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local identifier cache",
		Long:  "Short image identifiers are resolved against a cached listing of your images. The cache expires after five minutes and is dropped after uploads and deletes.",
	}

	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCachePathCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached listings",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if rawURL := cache.RedisURL(); rawURL != "" {
				client, err := cache.NewRedisClient(rawURL)
				if err != nil {
					return err
				}
				defer func() { _ = client.Close() }()
				removed, err := cache.ClearRedis(cmdContext(cmd), client)
				if err != nil {
					return fmt.Errorf("failed to clear redis cache: %w", err)
				}
				return reportCacheCleared(cmd, "redis", removed)
			}

			dir, err := cache.DefaultDir()
			if err != nil {
				return fmt.Errorf("could not determine cache directory: %w", err)
			}
			return reportCacheCleared(cmd, dir, cache.ClearAll(dir))
		}),
	}
}

func reportCacheCleared(cmd *cobra.Command, location string, removed int) error {
	if isJSON(cmd) {
		return printJSON(cmd, map[string]any{"location": location, "removed": removed})
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s (%d entries)\n", location, removed)
	return nil
}

func newCachePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the cache directory",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			dir, err := cache.DefaultDir()
			if err != nil {
				return fmt.Errorf("could not determine cache directory: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), dir)

			entries, err := os.ReadDir(dir)
			if err != nil {
				return nil // not created yet
			}
			for _, e := range entries {
				info, err := e.Info()
				if err != nil || e.IsDir() {
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d bytes)\n", e.Name(), info.Size())
			}
			return nil
		}),
	}
}
