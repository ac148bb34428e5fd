package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/novadental/verify-cli/internal/model"
)

var exportOutPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export latest coverage records to an XLSX workbook",
	Long:  "Writes one row per patient per tracked benefit field, using the most recent verification pass. Front-office staff load the workbook back into the PMS.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		patients, err := st.ListPatients(ctx)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Coverage")
		if err != nil {
			return eris.Wrap(err, "export: add sheet")
		}

		header := sheet.AddRow()
		for _, h := range []string{"Patient ID", "Patient", "Pass ID", "SAI Code", "Category", "Field", "Value", "Missing", "Verified By"} {
			header.AddCell().SetString(h)
		}

		var exported int
		for _, p := range patients {
			rec, err := st.GetLatestCoverage(ctx, p.ID)
			if err != nil {
				return eris.Wrapf(err, "export: coverage for %s", p.ID)
			}
			if rec == nil {
				continue
			}
			appendCoverageRows(sheet, p, *rec)
			exported++
		}

		if err := file.Save(exportOutPath); err != nil {
			return eris.Wrap(err, "export: save workbook")
		}

		zap.L().Info("export complete",
			zap.String("out", exportOutPath),
			zap.Int("patients", exported),
		)
		return nil
	},
}

func appendCoverageRows(sheet *xlsx.Sheet, patient model.Patient, rec model.CoverageRecord) {
	for _, row := range rec.Rows {
		value := row.AICallValue
		if value == "" {
			value = row.PreStepValue
		}

		xr := sheet.AddRow()
		xr.AddCell().SetString(patient.ID)
		xr.AddCell().SetString(patient.DisplayName())
		xr.AddCell().SetString(rec.PassID)
		xr.AddCell().SetString(row.SAICode)
		xr.AddCell().SetString(row.Category)
		xr.AddCell().SetString(row.FieldName)
		xr.AddCell().SetString(value)
		xr.AddCell().SetString(row.Missing)
		xr.AddCell().SetString(row.VerifiedBy)
	}
}

func init() {
	exportCmd.Flags().StringVar(&exportOutPath, "out", "coverage.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
