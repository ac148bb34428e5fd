package store

import (
	"context"

	"github.com/novadental/verify-cli/internal/model"
)

// TransactionResult carries the free-form outcome payload recorded when
// a stage finishes.
type TransactionResult struct {
	EligibilityCheck     string   `json:"eligibility_check,omitempty"`
	BenefitsVerification string   `json:"benefits_verification,omitempty"`
	CoverageDetails      string   `json:"coverage_details,omitempty"`
	RawResponse          string   `json:"raw_response,omitempty"`
	DataVerified         []string `json:"data_verified,omitempty"`
}

// Store defines the persistence interface for the verification pipeline.
// The pipeline core never queries storage itself; commands load the
// transaction log and hand it to the deriver.
type Store interface {
	// Patients
	UpsertPatient(ctx context.Context, p model.Patient) (*model.Patient, error)
	GetPatient(ctx context.Context, id string) (*model.Patient, error)
	ListPatients(ctx context.Context) ([]model.Patient, error)

	// Transactions. FindWaiting returns the in-flight row for
	// (patient, type) so a completing stage updates it in place instead
	// of appending a duplicate; it returns nil when none exists.
	CreateTransaction(ctx context.Context, tx model.Transaction) (*model.Transaction, error)
	FindWaiting(ctx context.Context, patientID string, typ model.TransactionType) (*model.Transaction, error)
	CompleteTransaction(ctx context.Context, id string, status model.TransactionStatus, result *TransactionResult) error
	ListTransactions(ctx context.Context, patientID string) ([]model.Transaction, error)

	// Coverage-by-code history
	SaveCoverage(ctx context.Context, rec model.CoverageRecord) (*model.CoverageRecord, error)
	GetLatestCoverage(ctx context.Context, patientID string) (*model.CoverageRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
