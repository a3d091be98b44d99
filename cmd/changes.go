package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/storage"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent review changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		limit, _ := cmd.Flags().GetInt("limit")
		vendor, _ := cmd.Flags().GetString("vendor")
		source, _ := cmd.Flags().GetString("source")
		since, _ := cmd.Flags().GetString("since")
		if dbPath == "" {
			dbPath = "vendorscope.sqlite"
		}
		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("database not found: %s", dbPath)
		}

		filter := storage.ChangeFilter{VendorSlug: vendor, Limit: limit}
		if source != "" {
			src, err := model.ParseSource(source)
			if err != nil {
				return err
			}
			filter.Source = src
		}
		if since != "" {
			t, err := time.Parse(model.DateLayout, since)
			if err != nil {
				return fmt.Errorf("invalid --since %q, expected YYYY-MM-DD", since)
			}
			filter.Since = t
		}

		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		changes, err := db.ListRecentChanges(context.Background(), filter)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Format("2006-01-02 15:04:05")
			switch c.ChangeType {
			case model.ChangeAdded:
				fmt.Printf("%s  %-7s  %-30s  %-8s  %.1f (%d)\n", ts, c.ChangeType, c.VendorSlug, c.Source, c.NewScore, c.NewCount)
			case model.ChangeRemoved:
				fmt.Printf("%s  %-7s  %-30s  %-8s  was %.1f (%d)\n", ts, c.ChangeType, c.VendorSlug, c.Source, c.OldScore, c.OldCount)
			default:
				fmt.Printf("%s  %-7s  %-30s  %-8s  %.1f (%d) -> %.1f (%d)\n", ts, c.ChangeType, c.VendorSlug, c.Source, c.OldScore, c.OldCount, c.NewScore, c.NewCount)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
	changesCmd.Flags().String("vendor", "", "Only show changes of this vendor slug")
	changesCmd.Flags().String("source", "", "Only show changes of this source (capterra, g2)")
	changesCmd.Flags().String("since", "", "Only show changes since this date (YYYY-MM-DD)")
}
