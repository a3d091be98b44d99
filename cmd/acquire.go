package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/vendorscope/pkg/pipeline"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Turn the discovery feed into verified candidate entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'vendorscope acquire --help'", args[0])
		}

		return withRunLock(outDir(cmd), func() error {
			vendors, err := loadVendors()
			if err != nil {
				return err
			}
			client, err := newHTTPClient(cmd)
			if err != nil {
				return err
			}
			feed, err := newFeed(client)
			if err != nil {
				return err
			}

			rc := newRunContext(cmd, nil)
			res, err := pipeline.RunAcquisition(cmd.Context(), rc, pipeline.AcquisitionConfig{
				Feed:         feed,
				Verification: verificationConfig(client),
			}, vendors)
			if err != nil {
				return err
			}
			return finish(cmd.Context(), cmd, rc, &pipeline.Outcome{Acquisition: res})
		})
	},
}

func init() {
	rootCmd.AddCommand(acquireCmd)
}
