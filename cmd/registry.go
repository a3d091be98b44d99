package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/vendorscope/pkg/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the review source mapping registry",
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check registry slugs against the vendor listing and mapping URLs against their source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		vendors, err := loadVendors()
		if err != nil {
			return err
		}

		issues := reg.Validate(vendors)
		for _, i := range issues {
			fmt.Println(i.String())
		}
		if registry.HasErrors(issues) {
			return fmt.Errorf("registry has errors")
		}
		fmt.Printf("%d vendors mapped, %d warnings\n", reg.Len(), len(issues))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryValidateCmd)
}
