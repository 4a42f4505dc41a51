package cmd

import (
	"clanaudit/internal/clashapi"
	"clanaudit/internal/registry"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var checkConfigPath string

// Offline sanity check: load the family configuration and print the
// resolved clan table without touching Discord or the API
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the family configuration file and print it",
	RunE: func(cmd *cobra.Command, args []string) error {

		reg, err := registry.Load(checkConfigPath)
		if err != nil {
			return err
		}
		family := reg.Family()

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Tag", "Role", "Type"})
		for _, clan := range family {
			table.Append([]string{clan.Name, clashapi.Tag(clan.Tag).String(), clan.RoleName, string(clan.Type)})
		}
		table.Render()
		fmt.Printf("%d clans configured\n", len(family))
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkConfigPath, "config", "data/clanaudit/family.yaml", "path to the family configuration file")
}
