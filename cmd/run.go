package cmd

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/vendorscope/internal/utils"
	"github.com/sw33tLie/vendorscope/pkg/aggregate"
	"github.com/sw33tLie/vendorscope/pkg/pipeline"
)

// runCmd implements: vendorscope run
// It reads every input first, then runs aggregation and acquisition side by
// side. Documents are written only when both succeeded.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Aggregate reviews and acquire candidates in one run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'vendorscope run --help'", args[0])
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

			rc := newRunContext(cmd, previous)
			ctx := cmd.Context()
			outcome := &pipeline.Outcome{}

			var (
				wg             sync.WaitGroup
				aggErr, acqErr error
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				outcome.Aggregation, aggErr = pipeline.RunAggregation(rc, pipeline.AggregationInput{Registry: reg, Dumps: dumps})
			}()
			go func() {
				defer wg.Done()
				outcome.Acquisition, acqErr = pipeline.RunAcquisition(ctx, rc, pipeline.AcquisitionConfig{
					Feed:         feed,
					Verification: verificationConfig(client),
				}, vendors)
			}()
			wg.Wait()

			if aggErr != nil {
				utils.Log.Errorf("Aggregation failed: %v", aggErr)
			}
			if acqErr != nil {
				utils.Log.Errorf("Acquisition failed: %v", acqErr)
			}
			if aggErr != nil || acqErr != nil {
				return fmt.Errorf("run %s failed, no document was written", rc.RunID)
			}
			return finish(ctx, cmd, rc, outcome)
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
