package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/imbo/imbo-cli/internal/dryrun"
	"github.com/imbo/imbo-cli/internal/iocontext"
	"github.com/imbo/imbo-cli/internal/validation"
)

func newMetadataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "metadata",
		Aliases: []string{"meta", "md"},
		Short:   "Read and write image metadata",
		Long: `Read and write the metadata object attached to an image.

Payloads are JSON objects given as an argument, read from a file with
@path, or piped on stdin.`,
	}

	cmd.AddCommand(newMetadataGetCmd())
	cmd.AddCommand(newMetadataWriteCmd("set", "POST", "Merge fields into the metadata", false))
	cmd.AddCommand(newMetadataWriteCmd("replace", "PUT", "Replace the metadata", true))
	cmd.AddCommand(newMetadataDeleteCmd())

	return cmd
}

func newMetadataGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <identifier>",
		Short: "Show image metadata",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			id, err := resolveImageIdentifier(cmdContext(cmd), client, args[0])
			if err != nil {
				return err
			}
			metadata, err := client.Metadata().Get(cmdContext(cmd), id)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, metadata)
			}
			if len(metadata) == 0 {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No metadata")
				return nil
			}
			printMetadata(cmd, metadata)
			return nil
		}),
	}
}

func printMetadata(cmd *cobra.Command, metadata map[string]any) {
	w := newTabWriterFromCmd(cmd)
	_, _ = fmt.Fprintln(w, "KEY\tVALUE")
	for _, key := range slices.Sorted(maps.Keys(metadata)) {
		_, _ = fmt.Fprintf(w, "%s\t%v\n", key, metadata[key])
	}
	_ = w.Flush()
}

// readPayload returns the JSON payload from an argument, an @file reference
// or stdin.
func readPayload(cmd *cobra.Command, args []string) (map[string]any, error) {
	var payload string
	if len(args) > 0 {
		data, err := loadTemplate(args[0])
		if err != nil {
			return nil, err
		}
		payload = data
	} else {
		ioStreams := iocontext.GetIO(cmd.Context())
		if !ioStreams.InIsPiped() {
			return nil, fmt.Errorf("metadata JSON is required as an argument or on stdin")
		}
		data, err := io.ReadAll(ioStreams.In)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		payload = string(data)
	}
	return validation.ParseMetadata(payload)
}

func newMetadataWriteCmd(name, method, short string, replace bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <identifier> [json]",
		Short: short,
		Example: fmt.Sprintf(`  imbo metadata %[1]s 7bf2e0a8c1d4 '{"title":"Sunset"}'
  imbo metadata %[1]s 7bf2e0a8c1d4 @meta.json
  echo '{"tags":["beach"]}' | imbo metadata %[1]s 7bf2e0a8c1d4`, name),
		Args: cobra.RangeArgs(1, 2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			fields, err := readPayload(cmd, args[1:])
			if err != nil {
				return err
			}
			client, err := getClient()
			if err != nil {
				return err
			}
			id, err := newIdentifierResolver(client, false).resolve(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}

			if ok, err := maybeDryRun(cmd, &dryrun.Preview{
				Method:   method,
				URL:      client.MetadataURL(id),
				Resource: "metadata",
				Details:  fields,
			}); ok || err != nil {
				return err
			}

			var result map[string]any
			if replace {
				result, err = client.Metadata().Replace(cmdContext(cmd), id, fields)
			} else {
				result, err = client.Metadata().Edit(cmdContext(cmd), id, fields)
			}
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, result)
			}
			printAction(cmd, "Updated", "metadata for", id, fmt.Sprintf("%d field(s)", len(fields)))
			return nil
		}),
	}
}

func newMetadataDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "delete <identifier>",
		Aliases: []string{"rm"},
		Short:   "Remove all metadata from an image",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			id, err := newIdentifierResolver(client, false).resolve(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}

			if ok, err := maybeDryRun(cmd, &dryrun.Preview{
				Method:   "DELETE",
				URL:      client.MetadataURL(id),
				Resource: "metadata",
				Details:  map[string]any{"imageIdentifier": id},
			}); ok || err != nil {
				return err
			}

			ok, err := confirmAction(cmd, confirmOptions{
				Prompt:              fmt.Sprintf("Remove all metadata from %s? [y/N]: ", id),
				CancelMessage:       "Cancelled.",
				Force:               force,
				RequireForceForJSON: true,
			})
			if err != nil || !ok {
				return err
			}

			if err := client.Metadata().Delete(cmdContext(cmd), id); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"imageIdentifier": id, "deleted": true})
			}
			printAction(cmd, "Removed", "metadata from", id, "")
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}
