package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/novadental/verify-cli/internal/model"
	"github.com/novadental/verify-cli/internal/pipeline"
)

var patientsCmd = &cobra.Command{
	Use:   "patients",
	Short: "Manage the patient roster",
	Long:  "Commands for listing patients and adding them to the verification roster.",
}

// -- patients list --

var patientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patients with their pipeline position",
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

		stageFilter, _ := cmd.Flags().GetString("stage")
		onlyComplete, _ := cmd.Flags().GetBool("completed")

		patients, err := st.ListPatients(ctx)
		if err != nil {
			return eris.Wrap(err, "patients list")
		}
		if len(patients) == 0 {
			fmt.Fprintln(os.Stderr, "No patients found.")
			return nil
		}

		stages := configuredStages()
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tMEMBER ID\tCURRENT STAGE\tSTATE")
		var shown int
		for _, p := range patients {
			txns, err := st.ListTransactions(ctx, p.ID)
			if err != nil {
				return eris.Wrap(err, "patients list")
			}
			status := pipeline.DeriveStatus(txns, stages)

			if onlyComplete && !status.Completed() {
				continue
			}

			cur, ok := status.Current()
			curName, curState := "-", "done"
			if ok {
				curName, curState = string(cur), string(status.State(cur))
			}
			if stageFilter != "" && curName != stageFilter {
				continue
			}

			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.DisplayName(), p.MemberID, curName, curState)
			shown++
		}
		tw.Flush()

		if shown == 0 {
			fmt.Fprintln(os.Stderr, "No patients matched the filter.")
		}
		return nil
	},
}

// -- patients add --

var patientsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a patient",
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

		p := model.Patient{
			CreatedAt: time.Now().UTC(),
		}
		p.ID, _ = cmd.Flags().GetString("id")
		p.PMSRef, _ = cmd.Flags().GetString("pms-ref")
		p.FirstName, _ = cmd.Flags().GetString("first")
		p.LastName, _ = cmd.Flags().GetString("last")
		p.Carrier, _ = cmd.Flags().GetString("carrier")
		p.MemberID, _ = cmd.Flags().GetString("member-id")
		p.GroupNum, _ = cmd.Flags().GetString("group")

		if p.FirstName == "" && p.LastName == "" {
			return eris.New("at least one of --first / --last is required")
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}

		saved, err := st.UpsertPatient(ctx, p)
		if err != nil {
			return eris.Wrap(err, "patients add")
		}

		zap.L().Info("patient saved",
			zap.String("id", saved.ID),
			zap.String("name", saved.DisplayName()),
		)
		fmt.Fprintln(os.Stdout, saved.ID)
		return nil
	},
}

// -- patients show --

var patientsShowCmd = &cobra.Command{
	Use:   "show <patient-id>",
	Short: "Show a patient's latest coverage record",
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
			return eris.Wrap(err, "patients show")
		}

		rec, err := st.GetLatestCoverage(ctx, patient.ID)
		if err != nil {
			return eris.Wrap(err, "patients show")
		}
		if rec == nil {
			fmt.Fprintf(os.Stderr, "No coverage record for %s yet.\n", patient.DisplayName())
			return nil
		}

		formatCoverageRecord(os.Stdout, *patient, *rec)
		return nil
	},
}

func formatCoverageRecord(w io.Writer, patient model.Patient, rec model.CoverageRecord) {
	fmt.Fprintf(w, "Patient: %s\n", patient.DisplayName())
	fmt.Fprintf(w, "Pass: %s (%s)\n\n", rec.PassID, rec.CreatedAt.Format(time.RFC3339))
	fmt.Fprintln(w, rec.Report)
}

func init() {
	patientsListCmd.Flags().String("stage", "", "filter by current stage (fetch_pms, api_verification, ...)")
	patientsListCmd.Flags().Bool("completed", false, "only show patients whose pipeline is complete")

	patientsAddCmd.Flags().String("id", "", "patient ID (generated when omitted)")
	patientsAddCmd.Flags().String("pms-ref", "", "practice management system reference")
	patientsAddCmd.Flags().String("first", "", "first name")
	patientsAddCmd.Flags().String("last", "", "last name")
	patientsAddCmd.Flags().String("carrier", "", "insurance carrier")
	patientsAddCmd.Flags().String("member-id", "", "insurance member ID")
	patientsAddCmd.Flags().String("group", "", "insurance group number")

	patientsCmd.AddCommand(patientsListCmd)
	patientsCmd.AddCommand(patientsAddCmd)
	patientsCmd.AddCommand(patientsShowCmd)
	rootCmd.AddCommand(patientsCmd)
}
