package pipeline

import (
	"github.com/novadental/verify-cli/internal/model"
)

// NormalizeResult is the output of one normalization pass: a full copy
// of the catalog with per-row resolution flags, plus the rendered
// coverage analysis report.
type NormalizeResult struct {
	Rows   []model.VerificationDataRow `json:"rows"`
	Report string                      `json:"report"`
}

// Resolved counts rows the pass verified.
func (r NormalizeResult) Resolved() int {
	var n int
	for _, row := range r.Rows {
		if row.Missing == model.MissingNo {
			n++
		}
	}
	return n
}

// MissingFields lists the field names still needing follow-up, in
// catalog order.
func (r NormalizeResult) MissingFields() []string {
	var out []string
	for _, row := range r.Rows {
		if row.Missing == model.MissingYes {
			out = append(out, row.FieldName)
		}
	}
	return out
}

// Normalize maps a raw eligibility payload onto the verification
// catalog. The catalog is deep-copied first, so repeated passes over the
// same template are independent and the shared template never mutates.
//
// A row that matches a benefit with a usable value is marked verified by
// the API; everything else is marked missing. A stale PreStepValue never
// counts as a fresh result: a row that fails to match stays missing even
// when a previous pass knew the value.
//
// Normalize never fails. A payload with no benefit list produces the
// unmodified (all-missing) catalog and a fallback report.
func Normalize(raw map[string]any, catalog []model.VerificationDataRow) NormalizeResult {
	benefits := ExtractBenefits(raw)
	rows := model.CloneRows(catalog)

	for i := range rows {
		row := &rows[i]

		b, ok := MatchBenefit(*row, benefits)
		value := ""
		if ok {
			value = benefitValue(b)
		}

		if value == "" {
			row.AICallValue = ""
			row.Missing = model.MissingYes
			row.VerifiedBy = model.VerifiedByNone
			continue
		}

		row.AICallValue = value
		row.Missing = model.MissingNo
		row.VerifiedBy = model.VerifiedByAPI
	}

	return NormalizeResult{
		Rows:   rows,
		Report: FormatCoverageReport(benefits, rows),
	}
}
