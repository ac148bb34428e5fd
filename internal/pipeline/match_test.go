package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novadental/verify-cli/internal/model"
)

func TestMatchBenefit_CodeBeatsName(t *testing.T) {
	row := model.VerificationDataRow{
		SAICode:    "VF000060",
		MatchCodes: []string{"D"},
		Keywords:   []string{"annual maximum"},
	}
	benefits := []model.Benefit{
		{Name: "Annual Maximum Note"},
		{Code: "D", Name: "Plan Max", BenefitAmount: "1000"},
	}

	// The code tier runs before the name tier, so the second benefit
	// wins even though the first appears earlier in the list.
	b, ok := MatchBenefit(row, benefits)
	require.True(t, ok)
	assert.Equal(t, "D", b.Code)
}

func TestMatchBenefit_FirstInListWinsWithinTier(t *testing.T) {
	row := model.VerificationDataRow{Keywords: []string{"deductible"}}
	benefits := []model.Benefit{
		{Name: "Deductible", BenefitAmount: "50"},
		{Name: "Deductible", BenefitAmount: "75"},
	}

	b, ok := MatchBenefit(row, benefits)
	require.True(t, ok)
	assert.Equal(t, "50", b.BenefitAmount)
}

func TestMatchBenefit_ServiceTypes(t *testing.T) {
	row := model.VerificationDataRow{Keywords: []string{"periodontal"}}
	benefits := []model.Benefit{
		{Name: "Coverage Line 7", ServiceTypes: []string{"Periodontal Maintenance"}},
	}

	_, ok := MatchBenefit(row, benefits)
	assert.True(t, ok)
}

func TestMatchBenefit_FuzzyCatchesMisspelling(t *testing.T) {
	row := model.VerificationDataRow{Keywords: []string{"prophylaxis"}}
	benefits := []model.Benefit{
		{Name: "Prophlaxis", BenefitPercent: "100"},
	}

	_, ok := MatchBenefit(row, benefits)
	assert.True(t, ok)
}

func TestMatchBenefit_FuzzyBounded(t *testing.T) {
	row := model.VerificationDataRow{Keywords: []string{"sealant"}}
	benefits := []model.Benefit{
		{Name: "Implant"},
	}

	_, ok := MatchBenefit(row, benefits)
	assert.False(t, ok)
}

func TestMatchBenefit_CoverageLevelRejectsMismatch(t *testing.T) {
	row := model.VerificationDataRow{
		MatchCodes:    []string{"C"},
		CoverageLevel: model.CoverageLevelIndividual,
	}
	benefits := []model.Benefit{
		{Code: "C", CoverageLevelCode: "FAM"},
	}

	_, ok := MatchBenefit(row, benefits)
	assert.False(t, ok)
}

func TestMatchBenefit_UndeclaredCoverageLevelAccepted(t *testing.T) {
	row := model.VerificationDataRow{
		MatchCodes:    []string{"C"},
		CoverageLevel: model.CoverageLevelIndividual,
	}
	benefits := []model.Benefit{
		{Code: "C"},
	}

	_, ok := MatchBenefit(row, benefits)
	assert.True(t, ok)
}

func TestMatchBenefit_NoMatch(t *testing.T) {
	row := model.VerificationDataRow{Keywords: []string{"fluoride"}}

	_, ok := MatchBenefit(row, []model.Benefit{{Name: "Orthodontics"}})
	assert.False(t, ok)
	_, ok = MatchBenefit(row, nil)
	assert.False(t, ok)
}

func TestNormalizeCoverageLevel(t *testing.T) {
	assert.Equal(t, "IND", normalizeCoverageLevel("individual"))
	assert.Equal(t, "IND", normalizeCoverageLevel("EMP"))
	assert.Equal(t, "FAM", normalizeCoverageLevel("Family"))
	assert.Equal(t, "ESP", normalizeCoverageLevel("esp"))
}
