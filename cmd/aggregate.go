package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/vendorscope/internal/utils"
	"github.com/sw33tLie/vendorscope/pkg/aggregate"
	"github.com/sw33tLie/vendorscope/pkg/pipeline"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Merge scraped review dumps into the aggregate document",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'vendorscope aggregate --help'", args[0])
		}

		return withRunLock(outDir(cmd), func() error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			dumps, err := loadDumps()
			if err != nil {
				return err
			}
			previous, err := aggregate.LoadSnapshot(previousPath(cmd))
			if err != nil {
				return err
			}

			rc := newRunContext(cmd, previous)
			res, err := pipeline.RunAggregation(rc, pipeline.AggregationInput{Registry: reg, Dumps: dumps})
			if err != nil {
				return err
			}
			for _, c := range res.Changes {
				utils.Log.Infof("%-7s %s %s", c.ChangeType, c.VendorSlug, c.Source)
			}
			return finish(cmd.Context(), cmd, rc, &pipeline.Outcome{Aggregation: res})
		})
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
}
