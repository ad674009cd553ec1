package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imbo/imbo-cli/internal/api"
	"github.com/imbo/imbo-cli/internal/imageurl"
)

type urlOptions struct {
	transforms []string
	format     string
}

func (o *urlOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&o.transforms, "transform", "t", nil, "Transformation, e.g. thumbnail:width=100,height=100 (repeatable)")
	cmd.Flags().StringVar(&o.format, "format", "", "Convert to jpg, png or gif")
}

func (o *urlOptions) build(cmd *cobra.Command, client *api.Client, arg string) (imageurl.ImageURL, error) {
	u, err := imageURLFromArg(cmdContext(cmd), client, arg, o.transforms)
	if err != nil {
		return imageurl.ImageURL{}, err
	}
	if o.format != "" {
		u = u.Convert(o.format)
	}
	return u, u.Err()
}

func transformationStrings(u imageurl.ImageURL) []string {
	ts := u.Transformations()
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.String())
	}
	return out
}

func newURLCmd() *cobra.Command {
	var (
		opts     urlOptions
		unsigned bool
	)

	cmd := &cobra.Command{
		Use:   "url <identifier|url>",
		Short: "Build a signed image URL",
		Long: `Build an image URL with transformations applied in the order given.

An existing image URL can be passed instead of an identifier; its
transformations are kept and new ones are appended. Run
"imbo transformations" for the accepted names.`,
		Example: `  imbo url 7bf2e0a8c1d4 -t thumbnail:width=200,height=200,fit=inset --format png
  imbo url 7bf2e0a8c1d4 -t desaturate -t border:color=000,width=2,height=2`,
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			u, err := opts.build(cmd, client, args[0])
			if err != nil {
				return err
			}
			if unsigned {
				u = u.WithPrivateKey("")
			}
			rendered, err := u.URL()
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"url":             rendered,
					"imageIdentifier": u.Identifier(),
					"extension":       u.Extension(),
					"transformations": transformationStrings(u),
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		}),
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&unsigned, "unsigned", false, "Leave out the access token")
	return cmd
}

func newShortURLCmd() *cobra.Command {
	var opts urlOptions

	cmd := &cobra.Command{
		Use:   "shorturl <identifier|url>",
		Short: "Create a short URL for an image",
		Long:  "Register a short URL on the server for the image, transformations and format included.",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			u, err := opts.build(cmd, client, args[0])
			if err != nil {
				return err
			}
			short, err := client.Images().ShortURL(cmdContext(cmd), u)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"shortUrl":        short,
					"imageIdentifier": u.Identifier(),
					"url":             u.String(),
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), short)
			return nil
		}),
	}

	opts.register(cmd)
	return cmd
}

func newTransformationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "transformations",
		Aliases: []string{"tf"},
		Short:   "List transformation names accepted by -t",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			names := imageurl.Names()
			if isJSON(cmd) {
				return printJSON(cmd, names)
			}
			for _, name := range names {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}),
	}
}
