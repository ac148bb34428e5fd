package model

import "time"

// Benefit category groupings used by the verification catalog.
const (
	CategoryPlanInfo       = "Plan Information"
	CategoryDeductible     = "Deductible"
	CategoryPreventative   = "Preventative"
	CategoryBasic          = "Basic"
	CategoryMajor          = "Major"
	CategoryAnnualMaximum  = "Annual Maximum"
	CategoryCoverageLimits = "Coverage Limits"
)

// Coverage level codes distinguishing individual and family variants of
// the same benefit concept.
const (
	CoverageLevelIndividual = "IND"
	CoverageLevelFamily     = "FAM"
)

// MissingYes and MissingNo are the legacy Y/N flags the PMS expects on
// coverage-by-code records.
const (
	MissingYes = "Y"
	MissingNo  = "N"
)

// VerifiedByAPI tags a row resolved from the eligibility API;
// VerifiedByNone marks a row still needing human or voice-AI follow-up.
const (
	VerifiedByAPI  = "API"
	VerifiedByNone = "-"
)

// VerificationDataRow is one tracked benefit field in the verification
// catalog. The template seeds SAICode through CoverageLevel; each
// normalization pass overwrites AICallValue, Missing and VerifiedBy on a
// copy of the template.
type VerificationDataRow struct {
	SAICode      string `json:"sai_code" yaml:"sai_code"`
	RefInsCode   string `json:"ref_ins_code" yaml:"ref_ins_code"`
	Category     string `json:"category" yaml:"category"`
	FieldName    string `json:"field_name" yaml:"field_name"`
	PreStepValue string `json:"pre_step_value,omitempty" yaml:"pre_step_value,omitempty"`
	AICallValue  string `json:"ai_call_value,omitempty" yaml:"ai_call_value,omitempty"`
	Missing      string `json:"missing" yaml:"missing"`
	VerifiedBy   string `json:"verified_by" yaml:"verified_by"`

	// Matching hints consumed by the normalizer, seeded from the template.
	MatchCodes    []string `json:"match_codes,omitempty" yaml:"match_codes,omitempty"`
	Keywords      []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	CoverageLevel string   `json:"coverage_level,omitempty" yaml:"coverage_level,omitempty"`
}

// Benefit is one line item from a third-party eligibility response.
// Any field may be absent; the shape is whatever the clearinghouse sent.
type Benefit struct {
	Code              string   `json:"code,omitempty"`
	Name              string   `json:"name,omitempty"`
	ServiceTypeCodes  []string `json:"serviceTypeCodes,omitempty"`
	ServiceTypes      []string `json:"serviceTypes,omitempty"`
	CoverageLevelCode string   `json:"coverageLevelCode,omitempty"`
	BenefitAmount     string   `json:"benefitAmount,omitempty"`
	BenefitPercent    string   `json:"benefitPercent,omitempty"`
	TimeQualifier     string   `json:"timeQualifier,omitempty"`
}

// CoverageRecord is one persisted normalization pass: the full row set
// plus the rendered coverage analysis report.
type CoverageRecord struct {
	ID        string                `json:"id"`
	PatientID string                `json:"patient_id"`
	PassID    string                `json:"pass_id"`
	Rows      []VerificationDataRow `json:"rows"`
	Report    string                `json:"report"`
	CreatedAt time.Time             `json:"created_at"`
}
