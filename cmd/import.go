package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/novadental/verify-cli/pkg/eligibility"
)

var importPayloadPath string

var importCmd = &cobra.Command{
	Use:   "import <patient-id>",
	Short: "Run a verification pass from a saved eligibility payload",
	Long:  "Replays a clearinghouse response saved as JSON through the normalizer, recording a pass exactly as if the API had returned it. Useful for offline reprocessing and for payloads received out of band.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipelineWithSource(ctx, eligibility.NewFileSource(importPayloadPath))
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Runner.Verify(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("payload imported",
			zap.String("patient", res.Patient.DisplayName()),
			zap.String("pass_id", res.PassID),
			zap.String("payload", importPayloadPath),
			zap.Int("resolved", res.Resolved),
		)

		fmt.Fprintln(os.Stdout, res.Report)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPayloadPath, "payload", "", "path to a saved eligibility JSON payload (required)")
	_ = importCmd.MarkFlagRequired("payload")
	rootCmd.AddCommand(importCmd)
}
