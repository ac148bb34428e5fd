package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the verification catalog template",
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the tracked benefit fields",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := initCatalog()
		if err != nil {
			return eris.Wrap(err, "catalog show")
		}

		category, _ := cmd.Flags().GetString("category")

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SAI CODE\tCATEGORY\tFIELD\tLEVEL\tMATCH CODES")
		var n int
		for _, row := range reg.Clone() {
			if category != "" && row.Category != category {
				continue
			}
			level := row.CoverageLevel
			if level == "" {
				level = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", row.SAICode, row.Category, row.FieldName, level, row.MatchCodes)
			n++
		}
		tw.Flush()

		fmt.Fprintf(os.Stderr, "%d fields\n", n)
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [template.yaml]",
	Short: "Validate a catalog template file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "embedded default"
		if len(args) == 1 {
			path = args[0]
			cfg.Catalog.TemplatePath = path
		}

		reg, err := initCatalog()
		if err != nil {
			return eris.Wrapf(err, "catalog validate: %s", path)
		}

		zap.L().Info("catalog template valid",
			zap.String("template", path),
			zap.Int("fields", len(reg.Clone())),
		)
		return nil
	},
}

func init() {
	catalogShowCmd.Flags().String("category", "", "only show fields in this category")

	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}
