package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	mediaapp "github.com/catalog/backend/internal/application/media"
)

type importOptions struct {
	derived     bool
	concurrency int
	altText     string
	failFast    bool
}

type importResult struct {
	path  string
	asset *mediaapp.AssetResponse
	err   error
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Upload image files into the media catalog",
		Long: `Upload image files the same way the upload endpoint does: every file gets
its derivative set and a catalog record. Files are processed concurrently;
a failed file does not stop the others unless --fail-fast is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.derived, "derived", false, "mark the records as derived assets, keeping them out of the media pool")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 4, "number of files processed at once")
	cmd.Flags().StringVar(&opts.altText, "alt", "", "alt text applied to every imported file")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "stop at the first failed file")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, paths []string, opts importOptions) error {
	if opts.concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	tier, err := a.selectedTier()
	if err != nil {
		return err
	}
	m, err := a.media()
	if err != nil {
		return err
	}

	results := make([]importResult, len(paths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			res := importResult{path: path}
			data, err := os.ReadFile(path)
			if err == nil {
				res.asset, err = m.Service.StoreAsset(ctx, mediaapp.StoreAssetInput{
					Data:      data,
					Filename:  filepath.Base(path),
					MimeType:  http.DetectContentType(data),
					IsDerived: opts.derived,
					Tier:      tier,
					AltText:   opts.altText,
				})
			}
			res.err = err

			mu.Lock()
			results[i] = res
			mu.Unlock()

			if err != nil && opts.failFast {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}
	groupErr := g.Wait()

	w := out(cmd)
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, r := range results {
		switch {
		case r.asset != nil:
			rows = append(rows, []string{
				r.path,
				r.asset.Keys.Original,
				strconv.Itoa(r.asset.Width) + "x" + strconv.Itoa(r.asset.Height),
				strconv.FormatBool(r.asset.IsInMediaPool),
				"",
			})
		case r.err != nil:
			failed++
			rows = append(rows, []string{r.path, "", "", "", r.err.Error()})
		default:
			rows = append(rows, []string{r.path, "", "", "", "skipped"})
		}
	}
	printTable(w, []string{"File", "Key", "Size", "Pool", "Error"}, rows)

	if groupErr != nil {
		return groupErr
	}
	if failed > 0 {
		printWarning(w, "%d of %d files failed", failed, len(paths))
		return fmt.Errorf("%d files failed to import", failed)
	}
	printSuccess(w, "Imported %d files into the %s tier", len(paths), tier)
	return nil
}
