package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalog/backend/internal/bootstrap"
)

func newResolveCmd(a *app) *cobra.Command {
	var viewable bool

	cmd := &cobra.Command{
		Use:   "resolve <key-or-url>...",
		Short: "Print the canonical storage key of legacy keys and URLs",
		Long: `Resolve each argument the way stored references are read: bare keys,
proxy paths, public base URLs, path-style and virtual-host S3 URLs all map
to the same canonical key. Arguments that do not point into our storage are
printed unchanged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := bootstrap.NewStorage(a.cfg, a.log)
			tier, err := a.selectedTier()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(args))
			for _, in := range args {
				key, ok := st.Resolver.Resolve(in)
				if !ok {
					rows = append(rows, []string{in, "", "not ours"})
					continue
				}
				row := []string{in, key, ""}
				if viewable {
					u, err := st.Materializer.KeyURL(cmd.Context(), key, tier)
					if err != nil {
						return fmt.Errorf("render %s: %w", key, err)
					}
					row[2] = u
				}
				rows = append(rows, row)
			}
			printTable(out(cmd), []string{"Input", "Key", "Viewable URL"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&viewable, "viewable", false, "also render the viewable URL of each key")
	return cmd
}
