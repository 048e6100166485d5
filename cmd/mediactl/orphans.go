package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/catalog/backend/internal/infrastructure/scheduler"
)

func newOrphansCmd(a *app) *cobra.Command {
	var showKeys bool

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Report original objects that no catalog record references",
		Long: `Scan the original/ prefix of every configured tier and report the objects
no catalog record references. These are typically left behind by uploads
that failed after some of their objects were written. Nothing is deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.media()
			if err != nil {
				return err
			}

			reports, err := scheduler.NewOrphanReportJob(m.Gateway, m.Repository).Run(cmd.Context())
			w := out(cmd)
			rows := make([][]string, 0, len(reports))
			total := 0
			for _, r := range reports {
				status := "scanned"
				if r.Skipped {
					status = "not configured"
				}
				rows = append(rows, []string{
					r.Tier.String(),
					status,
					strconv.Itoa(r.Scanned),
					strconv.Itoa(r.OrphanCount),
				})
				total += r.OrphanCount
			}
			printTable(w, []string{"Tier", "Status", "Scanned", "Orphans"}, rows)

			if showKeys {
				for _, r := range reports {
					for _, key := range r.Orphans {
						fmt.Fprintf(w, "%s\t%s\n", r.Tier, key)
					}
				}
			}
			if err != nil {
				printError(w, "scan incomplete: %v", err)
				return err
			}
			if total == 0 {
				printSuccess(w, "No orphaned objects")
			} else {
				printWarning(w, "%d orphaned objects", total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showKeys, "keys", false, "list the orphaned keys")
	return cmd
}
