package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imbo/imbo-cli/internal/api"
	"github.com/imbo/imbo-cli/internal/auth"
	"github.com/imbo/imbo-cli/internal/config"
	"github.com/imbo/imbo-cli/internal/iocontext"
	"github.com/imbo/imbo-cli/internal/validation"
)

// verifyAccount is swapped in tests.
var verifyAccount = func(ctx context.Context, account config.Account) (api.User, error) {
	client := newClientFactory().newClient(account)
	return client.Users().Get(ctx)
}

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		Aliases: []string{"au"},
		Short:   "Manage stored credentials",
		Long:    "Store Imbo hosts and key pairs as named profiles in your OS keychain.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthImportCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthListCmd())
	cmd.AddCommand(newAuthUseCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		hosts           []string
		user            string
		publicKey       string
		privateKey      string
		privateKeyStdin bool
		profile         string
		browser         bool
		noVerify        bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials for an Imbo server",
		Example: `  imbo auth login --host https://imbo.example.com --user alice --private-key secret
  echo "$KEY" | imbo auth login --host https://imbo.example.com --user alice --private-key-stdin
  imbo auth login --browser --profile staging`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if browser {
				return runBrowserSetup(cmd, profile)
			}

			if privateKeyStdin {
				if privateKey != "" {
					return fmt.Errorf("--private-key and --private-key-stdin are mutually exclusive")
				}
				data, err := io.ReadAll(iocontext.GetIO(cmd.Context()).In)
				if err != nil {
					return fmt.Errorf("failed to read private key from stdin: %w", err)
				}
				privateKey = strings.TrimSpace(string(data))
			}

			account := config.Account{
				Hosts:      hosts,
				User:       strings.TrimSpace(user),
				PublicKey:  strings.TrimSpace(publicKey),
				PrivateKey: privateKey,
			}.WithDefaults()
			return saveLogin(cmd, profile, account, noVerify)
		}),
	}

	cmd.Flags().StringArrayVar(&hosts, "host", nil, "Imbo host URL (repeat for multiple hosts)")
	cmd.Flags().StringVar(&user, "user", "", "User whose images are accessed")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "Public key (defaults to the user)")
	cmd.Flags().StringVar(&privateKey, "private-key", "", "Private key")
	cmd.Flags().BoolVar(&privateKeyStdin, "private-key-stdin", false, "Read the private key from stdin")
	cmd.Flags().StringVar(&profile, "profile", "default", "Profile name to save credentials under")
	cmd.Flags().BoolVar(&browser, "browser", false, "Enter credentials in a local browser form")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Save without contacting the server")
	flagAlias(cmd.Flags(), "public-key", "pk")
	flagAlias(cmd.Flags(), "private-key", "sk")
	flagAlias(cmd.Flags(), "profile", "pf")

	return cmd
}

func newAuthImportCmd() *cobra.Command {
	var (
		profile  string
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "import <env-file>",
		Short: "Store credentials read from a .env file",
		Long:  "Read IMBO_HOST, IMBO_USER, IMBO_PUBLIC_KEY and IMBO_PRIVATE_KEY from a .env file and save them as a profile.",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			account, err := config.ReadDotEnvAccount(args[0])
			if err != nil {
				return err
			}
			return saveLogin(cmd, profile, account, noVerify)
		}),
	}

	cmd.Flags().StringVar(&profile, "profile", "default", "Profile name to save credentials under")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Save without contacting the server")
	flagAlias(cmd.Flags(), "profile", "pf")

	return cmd
}

func saveLogin(cmd *cobra.Command, profile string, account config.Account, noVerify bool) error {
	if err := account.Validate(); err != nil {
		return err
	}
	for _, host := range account.Hosts {
		if err := validation.ValidateHostURL(host); err != nil {
			return fmt.Errorf("invalid host %s: %w", host, err)
		}
	}
	if err := validation.ValidateUser(account.User); err != nil {
		return err
	}

	var user *api.User
	if !noVerify {
		u, err := verifyAccount(cmdContext(cmd), account)
		if err != nil {
			return fmt.Errorf("credential check failed: %w", err)
		}
		user = &u
	}

	if err := config.SaveProfile(profile, account); err != nil {
		return err
	}

	if isJSON(cmd) {
		payload := map[string]any{
			"profile": profile,
			"hosts":   account.Hosts,
			"user":    account.User,
			"saved":   true,
		}
		if user != nil {
			payload["num_images"] = user.NumImages
		}
		return printJSON(cmd, payload)
	}

	printAction(cmd, "Saved", "profile", profile, account.User)
	if user != nil {
		printAction(cmd, "Verified", "user", user.ID, fmt.Sprintf("%d images", user.NumImages))
	}
	return nil
}

func runBrowserSetup(cmd *cobra.Command, profile string) error {
	server, err := auth.NewSetupServer(profile)
	if err != nil {
		return err
	}
	server.Out = iocontext.GetIO(cmd.Context()).ErrOut
	server.Verify = verifyAccount

	result, err := server.Start(cmdContext(cmd))
	if err != nil {
		return err
	}
	printAction(cmd, "Saved", "profile", profile, result.Account.User)
	return nil
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active account",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			source := "keychain"
			profile := flags.Profile
			if profile == "" {
				switch {
				case os.Getenv("IMBO_HOST") != "":
					source = "environment"
				case os.Getenv("IMBO_PROFILE") != "":
					profile = os.Getenv("IMBO_PROFILE")
				default:
					current, err := config.CurrentProfile()
					if err != nil {
						return err
					}
					profile = current
				}
			}

			account, err := config.ResolveAccount(flags.Profile)
			if err != nil {
				if errors.Is(err, config.ErrNotConfigured) && !isJSON(cmd) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not logged in. Run: imbo auth login")
				}
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"source":      source,
					"profile":     profile,
					"hosts":       account.Hosts,
					"user":        account.User,
					"public_key":  account.PublicKey,
					"private_key": maskKey(account.PrivateKey),
				})
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintf(w, "Source:\t%s\n", source)
			if source != "environment" {
				_, _ = fmt.Fprintf(w, "Profile:\t%s\n", profile)
			}
			_, _ = fmt.Fprintf(w, "Hosts:\t%s\n", strings.Join(account.Hosts, ", "))
			_, _ = fmt.Fprintf(w, "User:\t%s\n", account.User)
			_, _ = fmt.Fprintf(w, "Public key:\t%s\n", account.PublicKey)
			_, _ = fmt.Fprintf(w, "Private key:\t%s\n", maskKey(account.PrivateKey))
			return w.Flush()
		}),
	}
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored profiles",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			profiles, err := config.ListProfiles()
			if err != nil {
				return err
			}
			current, err := config.CurrentProfile()
			if err != nil {
				return err
			}

			type entry struct {
				Name    string   `json:"name"`
				Current bool     `json:"current"`
				User    string   `json:"user,omitempty"`
				Hosts   []string `json:"hosts,omitempty"`
			}
			entries := make([]entry, 0, len(profiles))
			for _, name := range profiles {
				e := entry{Name: name, Current: name == current}
				if account, err := config.LoadProfile(name); err == nil {
					e.User = account.User
					e.Hosts = account.Hosts
				}
				entries = append(entries, e)
			}

			if isJSON(cmd) {
				return printJSON(cmd, entries)
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No profiles stored. Run: imbo auth login")
				return nil
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintln(w, "\tPROFILE\tUSER\tHOSTS")
			for _, e := range entries {
				marker := ""
				if e.Current {
					marker = "*"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, e.Name, e.User, strings.Join(e.Hosts, ", "))
			}
			return w.Flush()
		}),
	}
}

func newAuthUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <profile>",
		Short: "Switch the active profile",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			profile := args[0]
			if _, err := config.LoadProfile(profile); err != nil {
				if errors.Is(err, config.ErrNotConfigured) {
					return fmt.Errorf("profile %q is not stored", profile)
				}
				return err
			}
			if err := config.SetCurrentProfile(profile); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"profile": profile, "current": true})
			}
			printAction(cmd, "Switched to", "profile", profile, "")
			return nil
		}),
	}
}

func newAuthLogoutCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if profile == "" {
				current, err := config.CurrentProfile()
				if err != nil {
					return err
				}
				profile = current
			}
			if err := config.DeleteProfile(profile); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"profile": profile, "removed": true})
			}
			printAction(cmd, "Removed", "profile", profile, "")
			return nil
		}),
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Profile name to remove (defaults to current)")
	flagAlias(cmd.Flags(), "profile", "pf")
	return cmd
}

// maskKey keeps the first and last two characters of a secret.
func maskKey(key string) string {
	if len(key) <= 6 {
		return strings.Repeat("*", len(key))
	}
	return key[:2] + strings.Repeat("*", len(key)-4) + key[len(key)-2:]
}
