package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"panelviz/internal/catalog"

	"github.com/spf13/cobra"
)

func newCatalogCmd(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List panel types and textures",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			cat, err := cfg.LoadCatalog()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cat)
			}
			return printCatalog(cmd, cat)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

func printCatalog(cmd *cobra.Command, cat *catalog.Catalog) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "PANEL\tWIDTH CM\tHEIGHT CM\tSHAPE")
	for _, t := range cat.PanelTypes {
		fmt.Fprintf(w, "%s\t%g\t%g\t%s\n", t.Name, t.WidthCm, t.HeightCm, t.Shape)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TEXTURE\tASSET\tSTATUS")
	for _, t := range cat.Textures {
		status := "ok"
		if _, err := os.Stat(t.AssetPath); err != nil {
			status = "missing"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.AssetPath, status)
	}
	return w.Flush()
}
