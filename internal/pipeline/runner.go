package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/novadental/verify-cli/internal/model"
	"github.com/novadental/verify-cli/internal/store"
	"github.com/novadental/verify-cli/pkg/eligibility"
)

// Runner drives one verification pass end to end: it opens an API
// transaction, queries the eligibility source, normalizes the payload
// onto the catalog and persists the outcome. The pure core stays
// untouched; the runner is the only place pipeline and storage meet.
type Runner struct {
	store   store.Store
	source  eligibility.Source
	catalog []model.VerificationDataRow
	stages  []model.Stage
}

// NewRunner wires a runner over the given store and eligibility source.
// The catalog slice is treated as an immutable template.
func NewRunner(st store.Store, src eligibility.Source, catalog []model.VerificationDataRow, stages []model.Stage) *Runner {
	return &Runner{store: st, source: src, catalog: catalog, stages: stages}
}

// PassResult summarizes one completed verification pass.
type PassResult struct {
	PassID   string
	Patient  model.Patient
	Status   model.TransactionStatus
	Rows     []model.VerificationDataRow
	Report   string
	Missing  []string
	Resolved int
}

// Verify runs an eligibility check for the patient and records the
// outcome. A Waiting API transaction left by an earlier attempt is
// completed in place; otherwise a fresh one is opened. Source failures
// are recorded as FAILED transactions before the error is returned, so
// the log stays a faithful history even when the clearinghouse is down.
func (r *Runner) Verify(ctx context.Context, patientID string) (*PassResult, error) {
	patient, err := r.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, eris.Wrap(err, "load patient")
	}

	tx, err := r.beginTransaction(ctx, patientID, model.TxAPI)
	if err != nil {
		return nil, err
	}

	raw, err := r.source.Check(ctx, eligibility.CheckRequest{
		MemberID:    patient.MemberID,
		GroupNumber: patient.GroupNum,
		Carrier:     patient.Carrier,
		FirstName:   patient.FirstName,
		LastName:    patient.LastName,
	})
	if err != nil {
		if cerr := r.store.CompleteTransaction(ctx, tx.ID, model.TxFailed, nil); cerr != nil {
			zap.L().Error("recording failed transaction", zap.String("transaction_id", tx.ID), zap.Error(cerr))
		}
		return nil, eris.Wrap(err, "eligibility check")
	}

	result := Normalize(raw, r.catalog)
	status := model.TxSuccess
	if result.Resolved() == 0 {
		status = model.TxPartial
	}

	passID := uuid.NewString()
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, eris.Wrap(err, "marshal raw payload")
	}

	txResult := &store.TransactionResult{
		EligibilityCheck:     "completed",
		BenefitsVerification: verificationSummary(result),
		CoverageDetails:      result.Report,
		RawResponse:          string(rawJSON),
		DataVerified:         verifiedFields(result.Rows),
	}
	if err := r.store.CompleteTransaction(ctx, tx.ID, status, txResult); err != nil {
		return nil, eris.Wrap(err, "complete transaction")
	}

	rec := model.CoverageRecord{
		ID:        uuid.NewString(),
		PatientID: patientID,
		PassID:    passID,
		Rows:      result.Rows,
		Report:    result.Report,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.store.SaveCoverage(ctx, rec); err != nil {
		return nil, eris.Wrap(err, "save coverage")
	}

	zap.L().Info("verification pass complete",
		zap.String("patient_id", patientID),
		zap.String("pass_id", passID),
		zap.String("status", string(status)),
		zap.Int("resolved", result.Resolved()),
		zap.Int("missing", len(result.MissingFields())),
	)

	return &PassResult{
		PassID:   passID,
		Patient:  *patient,
		Status:   status,
		Rows:     result.Rows,
		Report:   result.Report,
		Missing:  result.MissingFields(),
		Resolved: result.Resolved(),
	}, nil
}

// Status loads the patient's transaction log and derives the pipeline
// position from it.
func (r *Runner) Status(ctx context.Context, patientID string) (model.VerificationStatus, error) {
	txns, err := r.store.ListTransactions(ctx, patientID)
	if err != nil {
		return model.VerificationStatus{}, eris.Wrap(err, "list transactions")
	}
	return DeriveStatus(txns, r.stages), nil
}

// RecordStage appends a stage event to the patient's transaction log
// without running the pipeline. Used by webhook ingestion, where outside
// systems (PMS fetch, voice-AI callbacks) report their own outcomes.
func (r *Runner) RecordStage(ctx context.Context, patientID string, typ model.TransactionType, status model.TransactionStatus) (*model.Transaction, error) {
	if status == model.TxWaiting {
		return r.beginTransaction(ctx, patientID, typ)
	}

	waiting, err := r.store.FindWaiting(ctx, patientID, typ)
	if err != nil {
		return nil, eris.Wrap(err, "find waiting transaction")
	}
	if waiting != nil {
		if err := r.store.CompleteTransaction(ctx, waiting.ID, status, nil); err != nil {
			return nil, eris.Wrap(err, "complete transaction")
		}
		waiting.Status = status
		return waiting, nil
	}

	now := time.Now().UTC()
	return r.store.CreateTransaction(ctx, model.Transaction{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Type:      typ,
		Status:    status,
		StartTime: &now,
		EndTime:   &now,
	})
}

// beginTransaction reuses an in-flight Waiting row when one exists,
// otherwise opens a new one.
func (r *Runner) beginTransaction(ctx context.Context, patientID string, typ model.TransactionType) (*model.Transaction, error) {
	waiting, err := r.store.FindWaiting(ctx, patientID, typ)
	if err != nil {
		return nil, eris.Wrap(err, "find waiting transaction")
	}
	if waiting != nil {
		return waiting, nil
	}

	now := time.Now().UTC()
	tx, err := r.store.CreateTransaction(ctx, model.Transaction{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Type:      typ,
		Status:    model.TxWaiting,
		StartTime: &now,
	})
	if err != nil {
		return nil, eris.Wrap(err, "create transaction")
	}
	return tx, nil
}

func verificationSummary(res NormalizeResult) string {
	if len(res.MissingFields()) == 0 {
		return "all fields verified"
	}
	return "partial"
}

func verifiedFields(rows []model.VerificationDataRow) []string {
	var out []string
	for _, row := range rows {
		if row.Missing == model.MissingNo {
			out = append(out, row.FieldName)
		}
	}
	return out
}
