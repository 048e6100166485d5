package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/catalog/backend/internal/bootstrap"
	"github.com/catalog/backend/internal/infrastructure/storage"
)

func newURLCmd(a *app) *cobra.Command {
	var (
		signed bool
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "url <key>",
		Short: "Render the storage URL of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := a.selectedTier()
			if err != nil {
				return err
			}
			st := bootstrap.NewStorage(a.cfg, a.log)
			key := st.Resolver.ResolveOrPassthrough(args[0])

			u, err := st.Gateway.BuildURL(cmd.Context(), tier, key, storage.URLOptions{Signed: signed, TTL: ttl})
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), u)
			return nil
		},
	}

	cmd.Flags().BoolVar(&signed, "signed", false, "render a presigned URL")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime of a signed URL; defaults to storage.signed_url_ttl")
	return cmd
}
