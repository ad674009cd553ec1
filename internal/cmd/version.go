package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/imbo/imbo-cli/internal/update"
)

// version is set at build time via ldflags
var version = "dev"

// newUpdateChecker is swapped in tests.
var newUpdateChecker = update.NewChecker

func newVersionCmd() *cobra.Command {
	var noCheck bool

	cmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			var result *update.CheckResult
			if !noCheck {
				result = newUpdateChecker().Check(cmdContext(cmd), version)
			}

			if isJSON(cmd) {
				payload := map[string]any{
					"version": version,
					"go":      runtime.Version(),
				}
				if result != nil {
					payload["latest"] = result.LatestVersion
					payload["update_available"] = result.UpdateAvailable
				}
				return printJSON(cmd, payload)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imbo-cli version %s\n", version)
			if notice := result.Notice(); notice != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\n%s\n", notice)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&noCheck, "no-update-check", false, "Skip the release check")
	return cmd
}
