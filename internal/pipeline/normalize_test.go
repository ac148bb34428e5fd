package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novadental/verify-cli/internal/catalog"
	"github.com/novadental/verify-cli/internal/model"
)

func loadCatalog(t *testing.T) []model.VerificationDataRow {
	t.Helper()
	reg, err := catalog.LoadDefault()
	require.NoError(t, err)
	return reg.Rows
}

func rowBySAI(t *testing.T, rows []model.VerificationDataRow, sai string) model.VerificationDataRow {
	t.Helper()
	for _, r := range rows {
		if r.SAICode == sai {
			return r
		}
	}
	t.Fatalf("row %s not found", sai)
	return model.VerificationDataRow{}
}

func TestNormalize_AnnualMaximumByCode(t *testing.T) {
	raw := map[string]any{
		"benefits": []any{
			map[string]any{"code": "D", "name": "Annual Maximum", "benefitAmount": "1200"},
		},
	}

	result := Normalize(raw, loadCatalog(t))

	row := rowBySAI(t, result.Rows, "VF000060")
	assert.Equal(t, "$1200", row.AICallValue)
	assert.Equal(t, model.MissingNo, row.Missing)
	assert.Equal(t, model.VerifiedByAPI, row.VerifiedBy)
}

func TestNormalize_EmptyPayload(t *testing.T) {
	result := Normalize(map[string]any{}, loadCatalog(t))

	for _, row := range result.Rows {
		assert.Equal(t, model.MissingYes, row.Missing, "row %s", row.SAICode)
		assert.Equal(t, model.VerifiedByNone, row.VerifiedBy, "row %s", row.SAICode)
		assert.Empty(t, row.AICallValue, "row %s", row.SAICode)
	}
	assert.NotEmpty(t, result.Report)
	assert.Zero(t, result.Resolved())
}

func TestNormalize_NilPayload(t *testing.T) {
	result := Normalize(nil, loadCatalog(t))

	assert.NotEmpty(t, result.Report)
	assert.Zero(t, result.Resolved())
}

func TestNormalize_BenefitsInformationKey(t *testing.T) {
	raw := map[string]any{
		"benefitsInformation": []any{
			map[string]any{"name": "Individual Deductible", "benefitAmount": "50", "coverageLevelCode": "IND"},
		},
	}

	result := Normalize(raw, loadCatalog(t))

	row := rowBySAI(t, result.Rows, "VF000020")
	assert.Equal(t, "$50", row.AICallValue)
	assert.Equal(t, model.MissingNo, row.Missing)
}

func TestNormalize_CoverageLevelDisambiguation(t *testing.T) {
	raw := map[string]any{
		"benefits": []any{
			map[string]any{"code": "C", "name": "Deductible", "benefitAmount": "150", "coverageLevelCode": "FAM"},
			map[string]any{"code": "C", "name": "Deductible", "benefitAmount": "50", "coverageLevelCode": "IND"},
		},
	}

	result := Normalize(raw, loadCatalog(t))

	assert.Equal(t, "$50", rowBySAI(t, result.Rows, "VF000020").AICallValue)
	assert.Equal(t, "$150", rowBySAI(t, result.Rows, "VF000021").AICallValue)
}

func TestNormalize_PercentFormatting(t *testing.T) {
	raw := map[string]any{
		"benefits": []any{
			map[string]any{"name": "Preventive Services", "benefitPercent": "100"},
		},
	}

	result := Normalize(raw, loadCatalog(t))

	assert.Equal(t, "100%", rowBySAI(t, result.Rows, "VF000030").AICallValue)
}

func TestNormalize_SentinelValueIsMissing(t *testing.T) {
	raw := map[string]any{
		"benefits": []any{
			map[string]any{"code": "D", "name": "Annual Maximum", "benefitAmount": "Not Found"},
		},
	}

	result := Normalize(raw, loadCatalog(t))

	row := rowBySAI(t, result.Rows, "VF000060")
	assert.Equal(t, model.MissingYes, row.Missing)
	assert.Empty(t, row.AICallValue)
}

func TestNormalize_PreStepValueNeverPromoted(t *testing.T) {
	rows := loadCatalog(t)
	for i := range rows {
		if rows[i].SAICode == "VF000060" {
			rows[i].PreStepValue = "$1500"
		}
	}

	result := Normalize(map[string]any{}, rows)

	row := rowBySAI(t, result.Rows, "VF000060")
	// The stale value is informational only; an unmatched row stays
	// missing no matter what a previous pass knew.
	assert.Equal(t, "$1500", row.PreStepValue)
	assert.Empty(t, row.AICallValue)
	assert.Equal(t, model.MissingYes, row.Missing)
}

func TestNormalize_DoesNotMutateTemplate(t *testing.T) {
	reg, err := catalog.LoadDefault()
	require.NoError(t, err)

	raw := map[string]any{
		"benefits": []any{
			map[string]any{"code": "D", "name": "Annual Maximum", "benefitAmount": "1200"},
		},
	}

	first := Normalize(raw, reg.Rows)
	require.Equal(t, "$1200", rowBySAI(t, first.Rows, "VF000060").AICallValue)

	// Template row untouched after a pass that resolved it.
	tmpl := reg.BySAI("VF000060")
	require.NotNil(t, tmpl)
	assert.Empty(t, tmpl.AICallValue)
	assert.Equal(t, model.MissingYes, tmpl.Missing)

	// And the two passes' outputs are independently mutable.
	second := Normalize(raw, reg.Rows)
	first.Rows[0].AICallValue = "tampered"
	assert.NotEqual(t, "tampered", second.Rows[0].AICallValue)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := map[string]any{
		"benefits": []any{
			map[string]any{"code": "D", "name": "Annual Maximum", "benefitAmount": "1200"},
			map[string]any{"name": "Preventive Services", "benefitPercent": "100"},
			map[string]any{"name": "Crowns", "benefitPercent": "50"},
		},
	}
	rows := loadCatalog(t)

	first := Normalize(raw, rows)
	second := Normalize(raw, rows)

	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.Report, second.Report)
}

func TestNormalizeResult_MissingFields(t *testing.T) {
	result := Normalize(map[string]any{}, loadCatalog(t))

	missing := result.MissingFields()
	assert.Len(t, missing, len(result.Rows))
	assert.Contains(t, missing, "Annual Maximum")
}
