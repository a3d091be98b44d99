package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/vendorscope/pkg/content"
	"github.com/sw33tLie/vendorscope/pkg/model"
	"github.com/sw33tLie/vendorscope/pkg/pipeline"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [vendor-slug...]",
	Short: "Check the websites of directory vendors and classify them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunLock(outDir(cmd), func() error {
			vendors, err := loadVendors()
			if err != nil {
				return err
			}
			vendors, err = selectVendors(vendors, args)
			if err != nil {
				return err
			}
			client, err := newHTTPClient(cmd)
			if err != nil {
				return err
			}

			rc := newRunContext(cmd, nil)
			results := pipeline.RunVerification(cmd.Context(), rc, verificationConfig(client), vendors)
			for _, v := range results {
				fmt.Printf("%-30s %-12s %-10s %s\n", v.Report.VendorRef, v.Report.Status, v.Classification.Category, v.Classification.Reason)
			}
			return finish(cmd.Context(), cmd, rc, &pipeline.Outcome{Verification: results})
		})
	},
}

// selectVendors keeps the vendors named by slugs, or all of them.
func selectVendors(vendors []model.VendorRecord, slugs []string) ([]model.VendorRecord, error) {
	if len(slugs) == 0 {
		return vendors, nil
	}
	bySlug := content.Index(vendors)
	out := make([]model.VendorRecord, 0, len(slugs))
	for _, s := range slugs {
		v, ok := bySlug[s]
		if !ok {
			return nil, fmt.Errorf("unknown vendor %q", s)
		}
		out = append(out, v)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
