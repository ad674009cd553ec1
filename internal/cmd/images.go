package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/imbo/imbo-cli/internal/api"
	"github.com/imbo/imbo-cli/internal/cache"
	"github.com/imbo/imbo-cli/internal/cli"
	"github.com/imbo/imbo-cli/internal/dryrun"
	"github.com/imbo/imbo-cli/internal/filter"
	"github.com/imbo/imbo-cli/internal/imageurl"
	"github.com/imbo/imbo-cli/internal/iocontext"
	"github.com/imbo/imbo-cli/internal/query"
	"github.com/imbo/imbo-cli/internal/resolve"
	"github.com/imbo/imbo-cli/internal/upload"
	"github.com/imbo/imbo-cli/internal/validation"
)

const (
	// minIdentifierLength is the shortest identifier the server generates.
	// Shorter arguments are treated as prefixes.
	minIdentifierLength = 12
	// prefixScanLimit caps how many images are listed to resolve a prefix.
	prefixScanLimit = 1000
	prefixPageSize  = 100
)

// now is swapped in tests.
var now = time.Now

func newImagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "images",
		Aliases: []string{"image", "img"},
		Short:   "List, add, fetch and delete images",
	}

	cmd.AddCommand(newImagesListCmd())
	cmd.AddCommand(newImagesAddCmd())
	cmd.AddCommand(newImagesGetCmd())
	cmd.AddCommand(newImagesInfoCmd())
	cmd.AddCommand(newImagesExistsCmd())
	cmd.AddCommand(newImagesDeleteCmd())

	return cmd
}

func newImagesListCmd() *cobra.Command {
	var (
		page              int
		limit             int
		metadata          bool
		ids               []string
		checksums         []string
		originalChecksums []string
		sort              []string
		from              string
		to                string
		all               bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List images",
		Example: `  imbo images list --limit 50
  imbo images list --sort size:desc --from 7d
  imbo images list --metadata -o json --query '.images[].metadata'`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			q := query.NewImagesQuery().
				WithMetadata(metadata).
				WithIDs(ids...).
				WithChecksums(checksums...).
				WithOriginalChecksums(originalChecksums...).
				WithSort(sort...)
			if flagOrAliasChanged(cmd, "page") {
				if page < 1 {
					return fmt.Errorf("--page must be >= 1")
				}
				q = q.WithPage(page)
			}
			if flagOrAliasChanged(cmd, "limit") {
				if limit < 1 {
					return fmt.Errorf("--limit must be >= 1")
				}
				q = q.WithLimit(limit)
			}
			if from != "" {
				ts, err := cli.ParseUnix(from, now())
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				q = q.WithFrom(ts)
			}
			if to != "" {
				ts, err := cli.ParseUnix(to, now())
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				q = q.WithTo(ts)
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			var list api.ImageList
			if all {
				list, err = listAllImages(cmdContext(cmd), client, q)
			} else {
				list, err = client.Images().List(cmdContext(cmd), q)
			}
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, list)
			}
			if len(list.Images) == 0 {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No images found")
				return nil
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintln(w, "IDENTIFIER\tSIZE\tDIMENSIONS\tTYPE\tADDED")
			for _, img := range list.Images {
				added := "-"
				if img.Added != nil {
					added = img.Added.UTC().Format(time.DateTime)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\t%s\n",
					img.Identifier, filter.HumanSize(float64(img.Size)), img.Width, img.Height, img.MimeType, added)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if !flags.Quiet && !all {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Showing %d of %d (page %d)\n", list.Count, list.Hits, list.Page)
			}
			return nil
		}),
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "Images per page")
	cmd.Flags().BoolVar(&metadata, "metadata", false, "Include metadata")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "Only these image identifiers")
	cmd.Flags().StringSliceVar(&checksums, "checksum", nil, "Only images with these checksums")
	cmd.Flags().StringSliceVar(&originalChecksums, "original-checksum", nil, "Only images with these original checksums")
	cmd.Flags().StringSliceVar(&sort, "sort", nil, "Sort fields, e.g. size:desc")
	cmd.Flags().StringVar(&from, "from", "", "Added at or after (unix, YYYY-MM-DD, RFC3339, 7d, yesterday)")
	cmd.Flags().StringVar(&to, "to", "", "Added at or before (same formats as --from)")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch every page")
	flagAlias(cmd.Flags(), "limit", "lim")
	flagAlias(cmd.Flags(), "metadata", "meta")

	return cmd
}

// listAllImages walks pages until the server returns a short page.
func listAllImages(ctx context.Context, client *api.Client, q query.ImagesQuery) (api.ImageList, error) {
	q = q.WithPage(1)
	var out api.ImageList
	for {
		page, err := client.Images().List(ctx, q)
		if err != nil {
			return api.ImageList{}, err
		}
		out.Hits = page.Hits
		out.Limit = page.Limit
		out.Images = append(out.Images, page.Images...)
		if len(page.Images) == 0 || len(page.Images) < q.Limit() || int64(len(out.Images)) >= page.Hits {
			break
		}
		q = q.WithPage(q.Page() + 1)
	}
	out.Page = 1
	out.Count = int64(len(out.Images))
	return out, nil
}

// resolveImageIdentifier expands a short identifier prefix to the single
// image it matches. Full length identifiers are returned unchanged. A unique
// hit in the cached listing is accepted; commands that change an image use
// newIdentifierResolver(client, false) instead.
func resolveImageIdentifier(ctx context.Context, client *api.Client, input string) (string, error) {
	return newIdentifierResolver(client, true).resolve(ctx, input)
}

// identifierResolver resolves prefixes against one listing of the account's
// images. Without useCache the listing always comes from the server; write
// commands use that so a stale cache never picks the image they change.
type identifierResolver struct {
	client   *api.Client
	useCache bool

	loaded      bool
	identifiers []string
	complete    bool
}

func newIdentifierResolver(client *api.Client, useCache bool) *identifierResolver {
	return &identifierResolver{client: client, useCache: useCache}
}

func (r *identifierResolver) resolve(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if err := validation.ValidateImageIdentifier(input); err != nil {
		return "", err
	}
	if len(input) >= minIdentifierLength {
		return input, nil
	}

	store := identifierCache(r.client)
	if r.useCache && !r.loaded && store != nil {
		var cached []string
		if store.Get(&cached) {
			// only a unique hit is trusted; anything else refreshes the listing
			if id, err := resolve.Prefix(input, cached); err == nil {
				return id, nil
			}
		}
	}

	if !r.loaded {
		identifiers, complete, err := listIdentifiers(ctx, r.client)
		if err != nil {
			return "", err
		}
		r.identifiers, r.complete, r.loaded = identifiers, complete, true
		if store != nil && complete {
			store.Put(identifiers)
		}
	}

	if len(r.identifiers) == 0 {
		return "", &resolve.NotFoundError{Query: input}
	}
	id, err := resolve.Prefix(input, r.identifiers)
	if r.complete {
		return id, err
	}
	var ambiguous *resolve.AmbiguousError
	if errors.As(err, &ambiguous) {
		return "", err
	}
	// a single match, or none, among the scanned images proves nothing
	// about the images that were not listed
	return "", &resolve.TruncatedError{Query: input, Scanned: len(r.identifiers)}
}

// listIdentifiers lists up to prefixScanLimit image identifiers. complete is
// false when the account may hold images beyond the ones returned.
func listIdentifiers(ctx context.Context, client *api.Client) ([]string, bool, error) {
	q := query.NewImagesQuery().WithLimit(prefixPageSize)
	var identifiers []string
	for len(identifiers) < prefixScanLimit {
		page, err := client.Images().List(ctx, q)
		if err != nil {
			return nil, false, err
		}
		for _, img := range page.Images {
			identifiers = append(identifiers, img.Identifier)
		}
		if len(page.Images) < prefixPageSize {
			return identifiers, true, nil
		}
		if page.Hits > 0 && int64(len(identifiers)) >= page.Hits {
			return identifiers, true, nil
		}
		q = q.WithPage(q.Page() + 1)
	}
	return identifiers, false, nil
}

// identifierCache returns the cached identifier listing of the client's
// account, or nil when no cache is available.
func identifierCache(client *api.Client) cache.Backend {
	backend, err := cache.Open("images", client.Hosts, client.User())
	if err != nil {
		slog.Debug("identifier cache unavailable", "error", err)
		return nil
	}
	return backend
}

func clearIdentifierCache(client *api.Client) {
	if store := identifierCache(client); store != nil {
		store.Clear()
	}
}

func isRemoteSource(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func newImagesAddCmd() *cobra.Command {
	var (
		concurrency int64
		progress    bool
	)

	cmd := &cobra.Command{
		Use:   "add <file|url|->...",
		Short: "Upload images",
		Long: `Upload local files, remote URLs or stdin ("-").

Local files are checked to be complete JPEG, PNG or GIF images before
upload and are sent unchanged. Use transformations on the image URL to
resize them.`,
		Example: `  imbo images add photo.jpg
  imbo images add *.png --concurrency 8
  imbo images add https://example.com/cat.gif
  cat photo.jpg | imbo images add -`,
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			stdinCount := 0
			for _, a := range args {
				if a == "-" {
					stdinCount++
				}
			}
			if stdinCount > 1 {
				return fmt.Errorf("stdin (-) can only be given once")
			}

			ioStreams := iocontext.GetIO(cmd.Context())
			prepared := make(map[string][]byte, len(args))
			infos := make(map[string]upload.Info, len(args))
			for _, source := range args {
				if isRemoteSource(source) {
					if err := validation.ValidateSourceURL(source); err != nil {
						return fmt.Errorf("%s: %w", source, err)
					}
					continue
				}
				data, err := readSource(ioStreams, source)
				if err != nil {
					return err
				}
				info, err := upload.Inspect(data)
				if err != nil {
					return fmt.Errorf("%s: %w", source, err)
				}
				prepared[source] = data
				infos[source] = info
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			if dryrun.IsEnabled(cmd.Context()) {
				details := map[string]any{"count": len(args)}
				for source, info := range infos {
					details[source] = info.String() + " " + filter.HumanSize(float64(info.Bytes))
				}
				_, err := maybeDryRun(cmd, &dryrun.Preview{
					Method:   "POST",
					URL:      client.ImagesURL(query.NewImagesQuery()),
					Resource: "images",
					Details:  details,
				})
				return err
			}

			showProgress := progress && len(args) > 1 && !isJSON(cmd) && !flags.Quiet
			results := runBulkOperation(cmdContext(cmd), args, concurrency, showProgress, ioStreams.ErrOut,
				func(ctx context.Context, source string) (api.AddedImage, error) {
					if data, ok := prepared[source]; ok {
						return client.Images().Add(ctx, bytes.NewReader(data))
					}
					return client.Images().AddFromURL(ctx, source)
				})
			clearIdentifierCache(client)

			return reportBulk(cmd, "Added", results, func(r BulkResult) string {
				added, _ := r.Data.(api.AddedImage)
				return fmt.Sprintf("%s (%dx%d %s)", added.Identifier, added.Width, added.Height, added.Extension)
			})
		}),
	}

	cmd.Flags().Int64Var(&concurrency, "concurrency", DefaultConcurrency, "Parallel uploads")
	cmd.Flags().BoolVar(&progress, "progress", true, "Show progress on stderr")
	flagAlias(cmd.Flags(), "concurrency", "cc")

	return cmd
}

func readSource(ioStreams *iocontext.IO, source string) ([]byte, error) {
	if source == "-" {
		data, err := readAllLimited(ioStreams.In)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", source)
	}
	if info.Size() > api.MaxDownloadSize {
		return nil, fmt.Errorf("%s: file too large (%s)", source, filter.HumanSize(float64(info.Size())))
	}
	return os.ReadFile(source)
}

// reportBulk prints bulk results and returns an error when any item failed.
func reportBulk(cmd *cobra.Command, verb string, results []BulkResult, describe func(BulkResult) string) error {
	success, failure := countResults(results)
	if isJSON(cmd) {
		if err := printJSON(cmd, bulkSummary(results)); err != nil {
			return err
		}
	} else {
		errOut := cmd.ErrOrStderr()
		for _, r := range results {
			if r.Success {
				printAction(cmd, verb, "image", r.Item, describe(r))
			} else {
				_, _ = fmt.Fprintf(errOut, "Failed %s: %v\n", r.Item, r.Error)
			}
		}
	}
	if failure > 0 {
		err := fmt.Errorf("%d of %d failed", failure, success+failure)
		for _, r := range results {
			if r.Error != nil {
				// Keep the first cause so the exit code reflects it.
				err = fmt.Errorf("%d of %d failed: %w", failure, success+failure, r.Error)
				break
			}
		}
		return err
	}
	return nil
}

func newImagesDeleteCmd() *cobra.Command {
	var (
		force       bool
		concurrency int64
	)

	cmd := &cobra.Command{
		Use:     "delete <identifier>...",
		Aliases: []string{"rm"},
		Short:   "Delete images",
		Long:    "Delete images. Identifiers are read from stdin, one per line, when none are given.",
		Example: `  imbo images delete 7bf2e0a8c1d4
  imbo images list -o json -q '.images[].imageIdentifier' | imbo images delete --force`,
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			inputs, err := readArgsOrStdin(cmd, args)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return fmt.Errorf("at least one image identifier is required")
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			resolver := newIdentifierResolver(client, false)
			ids := make([]string, 0, len(inputs))
			for _, in := range inputs {
				id, err := resolver.resolve(cmdContext(cmd), strings.Trim(in, `"`))
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			if dryrun.IsEnabled(cmd.Context()) {
				_, err := maybeDryRun(cmd, &dryrun.Preview{
					Method:   "DELETE",
					URL:      client.ImageURL(ids[0]).String(),
					Resource: "images",
					Details:  map[string]any{"identifiers": strings.Join(ids, ", "), "count": len(ids)},
				})
				return err
			}

			ok, err := confirmAction(cmd, confirmOptions{
				Prompt:              fmt.Sprintf("Delete %d image(s)? This cannot be undone. [y/N]: ", len(ids)),
				CancelMessage:       "Cancelled.",
				Force:               force,
				RequireForceForJSON: true,
			})
			if err != nil || !ok {
				return err
			}

			results := runBulkOperation(cmdContext(cmd), ids, concurrency, false, nil,
				func(ctx context.Context, id string) (string, error) {
					return client.Images().Delete(ctx, id)
				})
			clearIdentifierCache(client)
			return reportBulk(cmd, "Deleted", results, func(BulkResult) string { return "" })
		}),
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	cmd.Flags().Int64Var(&concurrency, "concurrency", DefaultConcurrency, "Parallel deletes")
	flagAlias(cmd.Flags(), "concurrency", "cc")
	return cmd
}

func newImagesInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "info <identifier>",
		Aliases: []string{"properties", "props"},
		Short:   "Show image properties",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			id, err := resolveImageIdentifier(cmdContext(cmd), client, args[0])
			if err != nil {
				return err
			}
			props, err := client.Images().Properties(cmdContext(cmd), id)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, props)
			}
			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintf(w, "Identifier:\t%s\n", props.Identifier)
			_, _ = fmt.Fprintf(w, "Dimensions:\t%dx%d\n", props.Width, props.Height)
			_, _ = fmt.Fprintf(w, "Size:\t%s (%d bytes)\n", filter.HumanSize(float64(props.Filesize)), props.Filesize)
			_, _ = fmt.Fprintf(w, "Type:\t%s\n", props.MimeType)
			_, _ = fmt.Fprintf(w, "Extension:\t%s\n", props.Extension)
			_, _ = fmt.Fprintf(w, "URL:\t%s\n", client.ImageURL(props.Identifier).String())
			return w.Flush()
		}),
	}
}

func newImagesExistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <identifier>",
		Short: "Check whether an image exists",
		Long:  "Print true or false. The exit code is 4 when the image does not exist.",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateImageIdentifier(args[0]); err != nil {
				return err
			}
			client, err := getClient()
			if err != nil {
				return err
			}
			exists, err := client.Images().Exists(cmdContext(cmd), args[0])
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				if err := printJSON(cmd, map[string]any{"imageIdentifier": args[0], "exists": exists}); err != nil {
					return err
				}
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), exists)
			}
			if !exists {
				return &handledError{err: fmt.Errorf("image %s does not exist", args[0]), exitCode: exitNotFound}
			}
			return nil
		}),
	}
}

// imageURLFromArg builds an image URL from an identifier (or prefix) or a
// full image URL, then applies transformation specs in order.
func imageURLFromArg(ctx context.Context, client *api.Client, arg string, specs []string) (imageurl.ImageURL, error) {
	var u imageurl.ImageURL
	if isRemoteSource(arg) {
		parsed, err := client.ParseImageURL(arg)
		if err != nil {
			return imageurl.ImageURL{}, err
		}
		u = parsed
	} else {
		id, err := resolveImageIdentifier(ctx, client, arg)
		if err != nil {
			return imageurl.ImageURL{}, err
		}
		u = client.ImageURL(id)
	}

	for _, spec := range specs {
		next, err := imageurl.ApplyString(u, spec)
		if err != nil {
			return imageurl.ImageURL{}, err
		}
		u = next
	}
	return u, u.Err()
}

func newImagesGetCmd() *cobra.Command {
	var (
		transforms []string
		file       string
		format     string
	)

	cmd := &cobra.Command{
		Use:     "get <identifier|url>",
		Aliases: []string{"download"},
		Short:   "Download an image",
		Example: `  imbo images get 7bf2e0a8c1d4 -t thumbnail:width=200,height=200 -O thumb.jpg
  imbo images get 7bf2e0a8c1d4 --format png > image.png`,
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ioStreams := iocontext.GetIO(cmd.Context())
			if file == "" && ioStreams.OutIsTerminal() {
				return fmt.Errorf("refusing to write image data to a terminal: use --file or redirect stdout")
			}

			client, err := getClient()
			if err != nil {
				return err
			}
			if format == "" && file != "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
			}
			u, err := imageURLFromArg(cmdContext(cmd), client, args[0], transforms)
			if err != nil {
				return err
			}
			if format != "" {
				u = u.Convert(format)
				if err := u.Err(); err != nil {
					return err
				}
			}

			data, err := client.Images().Data(cmdContext(cmd), u)
			if err != nil {
				return err
			}

			if file == "" || file == "-" {
				_, err := ioStreams.Out.Write(data)
				return err
			}
			if err := os.WriteFile(file, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", file, err)
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"file": file, "bytes": len(data), "url": u.String()})
			}
			printAction(cmd, "Saved", "image", file, filter.HumanSize(float64(len(data))))
			return nil
		}),
	}

	cmd.Flags().StringArrayVarP(&transforms, "transform", "t", nil, "Transformation, e.g. resize:width=200 (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "O", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "Convert to jpg, png or gif (defaults to the --file extension)")
	return cmd
}

func readAllLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, api.MaxDownloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > api.MaxDownloadSize {
		return nil, fmt.Errorf("input too large: exceeds %s", filter.HumanSize(api.MaxDownloadSize))
	}
	return data, nil
}
