package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/imbo/imbo-cli/internal/filter"
)

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC1123)
}

func yesNo(v bool) string {
	if v {
		return "ok"
	}
	return "down"
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health",
		Long:  "Fetch /status.json. Exits non-zero when the database or storage is down.",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			status, err := client.Server().Status(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				if err := printJSON(cmd, status); err != nil {
					return err
				}
			} else {
				w := newTabWriterFromCmd(cmd)
				_, _ = fmt.Fprintf(w, "Host:\t%s\n", client.StatusURL())
				_, _ = fmt.Fprintf(w, "Date:\t%s\n", formatTime(status.Date))
				_, _ = fmt.Fprintf(w, "Database:\t%s\n", yesNo(status.Database))
				_, _ = fmt.Fprintf(w, "Storage:\t%s\n", yesNo(status.Storage))
				_ = w.Flush()
			}

			if !status.Healthy() {
				return &handledError{err: fmt.Errorf("server is unhealthy"), exitCode: exitServer}
			}
			return nil
		}),
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show server statistics",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			stats, err := client.Server().Stats(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, stats)
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintf(w, "Images:\t%d\n", stats.NumImages)
			_, _ = fmt.Fprintf(w, "Users:\t%d\n", stats.NumUsers)
			_, _ = fmt.Fprintf(w, "Bytes:\t%d (%s)\n", stats.NumBytes, filter.HumanSize(float64(stats.NumBytes)))
			keys := make([]string, 0, len(stats.Custom))
			for k := range stats.Custom {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				_, _ = fmt.Fprintf(w, "%s:\t%v\n", k, stats.Custom[k])
			}
			return w.Flush()
		}),
	}
}

func newUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			user, err := client.Users().Get(cmdContext(cmd))
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, user)
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintf(w, "User:\t%s\n", user.ID)
			_, _ = fmt.Fprintf(w, "Images:\t%d\n", user.NumImages)
			_, _ = fmt.Fprintf(w, "Last modified:\t%s\n", formatTime(user.LastModified))
			return w.Flush()
		}),
	}
}
