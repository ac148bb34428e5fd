package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <patient-id>",
	Short: "Run an eligibility verification pass for a patient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Runner.Verify(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "verify")
		}

		zap.L().Info("verification pass finished",
			zap.String("patient", res.Patient.DisplayName()),
			zap.String("pass_id", res.PassID),
			zap.String("status", string(res.Status)),
			zap.Int("resolved", res.Resolved),
		)

		fmt.Fprintln(os.Stdout, res.Report)
		if len(res.Missing) > 0 {
			fmt.Fprintf(os.Stderr, "%d fields still need follow-up:\n", len(res.Missing))
			for _, name := range res.Missing {
				fmt.Fprintf(os.Stderr, "  - %s\n", name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
