package model

import "time"

// TransactionType identifies which pipeline stage produced a transaction.
type TransactionType string

const (
	TxFetch TransactionType = "FETCH"
	TxAPI   TransactionType = "API"
	TxCall  TransactionType = "CALL"
	TxFax   TransactionType = "FAX"
	TxSave  TransactionType = "SAVE"
)

// TransactionStatus is the outcome of one verification attempt.
// Waiting is a sentinel meaning the stage started but has not finished;
// a Waiting row is updated in place on completion rather than duplicated.
type TransactionStatus string

const (
	TxSuccess TransactionStatus = "SUCCESS"
	TxPartial TransactionStatus = "PARTIAL"
	TxFailed  TransactionStatus = "FAILED"
	TxWaiting TransactionStatus = "Waiting"
)

// Transaction records one verification attempt for a patient.
// The result fields are opaque payload carried for audit; the status
// deriver only looks at Type, Status and StartTime.
type Transaction struct {
	ID        string            `json:"id"`
	PatientID string            `json:"patient_id"`
	Type      TransactionType   `json:"type"`
	Status    TransactionStatus `json:"status"`
	StartTime *time.Time        `json:"start_time,omitempty"`
	EndTime   *time.Time        `json:"end_time,omitempty"`

	EligibilityCheck     string   `json:"eligibility_check,omitempty"`
	BenefitsVerification string   `json:"benefits_verification,omitempty"`
	CoverageDetails      string   `json:"coverage_details,omitempty"`
	RawResponse          string   `json:"raw_response,omitempty"`
	DataVerified         []string `json:"data_verified,omitempty"`
}

// Terminal reports whether the transaction reached a final outcome.
func (t Transaction) Terminal() bool {
	return t.Status != TxWaiting
}
