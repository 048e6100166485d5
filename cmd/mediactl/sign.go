package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSignCmd(a *app) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "sign <key-or-url>...",
		Short: "Render signed URLs for several keys or URLs",
		Long: `Resolve every argument to its canonical key and print a presigned URL for
it, one per line in argument order. Arguments that are not ours are printed
unchanged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := a.selectedTier()
			if err != nil {
				return err
			}
			m, err := a.media()
			if err != nil {
				return err
			}

			results, err := m.Service.SignKeys(cmd.Context(), tier, args, ttl)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintln(out(cmd), r.URL)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime of the signed URLs; defaults to storage.signed_url_ttl")
	return cmd
}
