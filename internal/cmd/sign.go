package cmd

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imbo/imbo-cli/internal/api"
	"github.com/imbo/imbo-cli/internal/cli"
	"github.com/imbo/imbo-cli/internal/config"
	"github.com/imbo/imbo-cli/internal/signing"
)

var signMethods = slices.Concat(api.WriteMethods, api.ReadMethods)

func parseAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid URL %q: must be absolute", raw)
	}
	return nil
}

func newSignCmd() *cobra.Command {
	var timestamp string

	cmd := &cobra.Command{
		Use:   "sign <method> <url>",
		Short: "Compute request signature headers",
		Long: `Print the X-Imbo-Authenticate-Signature and X-Imbo-Authenticate-Timestamp
headers for a write request, using the active account's keys.`,
		Example: `  imbo sign DELETE https://imbo.example.com/users/alice/images/7bf2e0a8c1d4
  curl -X DELETE $(imbo sign DELETE "$URL" -o json -q '"-H \(.headers | to_entries[] | "\(.key): \(.value)")"') "$URL"`,
		Args: cobra.ExactArgs(2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			if !slices.Contains(signMethods, method) {
				return fmt.Errorf("invalid method %q: expected one of %s", args[0], strings.Join(signMethods, ", "))
			}
			rawURL := args[1]
			if err := parseAbsoluteURL(rawURL); err != nil {
				return err
			}

			account, err := config.ResolveAccount(flags.Profile)
			if err != nil {
				return err
			}

			ts := timestamp
			if ts == "" {
				ts = signing.Timestamp(now())
			} else {
				parsed, err := parseSignTimestamp(ts)
				if err != nil {
					return err
				}
				ts = parsed
			}
			signature := signing.Signature(method, rawURL, account.PublicKey, ts, account.PrivateKey)

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"method":    method,
					"url":       rawURL,
					"publicKey": account.PublicKey,
					"timestamp": ts,
					"signature": signature,
					"headers": map[string]string{
						api.HeaderSignature: signature,
						api.HeaderTimestamp: ts,
					},
				})
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s: %s\n", api.HeaderSignature, signature)
			_, _ = fmt.Fprintf(out, "%s: %s\n", api.HeaderTimestamp, ts)
			return nil
		}),
	}

	cmd.Flags().StringVar(&timestamp, "timestamp", "", "Sign with this time instead of now (any --from format)")
	return cmd
}

func parseSignTimestamp(s string) (string, error) {
	t, err := cli.ParseTime(s, now())
	if err != nil {
		return "", fmt.Errorf("invalid --timestamp: %w", err)
	}
	return signing.Timestamp(t), nil
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <url>",
		Short: "Add an access token to a URL",
		Long: `Compute the access token for a read URL with the active account's private
key. Any accessToken already on the URL is replaced.`,
		Example: `  imbo token "https://imbo.example.com/users/alice/images/7bf2e0a8c1d4.png?t[]=desaturate"`,
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			rawURL := args[0]
			if err := parseAbsoluteURL(rawURL); err != nil {
				return err
			}

			account, err := config.ResolveAccount(flags.Profile)
			if err != nil {
				return err
			}

			stripped, _ := signing.StripAccessToken(rawURL)
			token := signing.AccessToken(stripped, account.PrivateKey)
			signed := signing.WithAccessToken(rawURL, account.PrivateKey)

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"url":         signed,
					"accessToken": token,
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		}),
	}
	return cmd
}
