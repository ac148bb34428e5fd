package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/novadental/verify-cli/internal/model"
	"github.com/novadental/verify-cli/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status <patient-id>",
	Short: "Show a patient's verification pipeline status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		patient, err := st.GetPatient(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "status")
		}

		txns, err := st.ListTransactions(ctx, patient.ID)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		status := pipeline.DeriveStatus(txns, configuredStages())
		formatStatus(os.Stdout, *patient, status, len(txns))
		return nil
	},
}

func formatStatus(w io.Writer, patient model.Patient, status model.VerificationStatus, txnCount int) {
	fmt.Fprintf(w, "Patient: %s (%s)\n", patient.DisplayName(), patient.ID)
	fmt.Fprintf(w, "Transactions: %d\n\n", txnCount)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTATE")
	for _, stage := range status.Stages {
		marker := ""
		// Current() points at the last stage once everything finished;
		// a done pipeline has no stage to mark.
		if cur, ok := status.Current(); ok && cur == stage && !status.Completed() {
			marker = "  <- current"
		}
		fmt.Fprintf(tw, "%s\t%s%s\n", stage, status.State(stage), marker)
	}
	tw.Flush()

	if status.Completed() {
		fmt.Fprintln(w, "\nPipeline complete.")
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
