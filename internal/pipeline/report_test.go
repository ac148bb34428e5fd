package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/novadental/verify-cli/internal/model"
)

func TestFormatCoverageReport_Sections(t *testing.T) {
	benefits := []model.Benefit{
		{Name: "Routine Cleaning", BenefitPercent: "100"},
		{Name: "Amalgam Filling", BenefitPercent: "80"},
		{Name: "Porcelain Crown", BenefitPercent: "50"},
		{Name: "Periodontal Scaling", BenefitPercent: "80"},
	}

	report := FormatCoverageReport(benefits, nil)

	assert.Contains(t, report, "## Preventive")
	assert.Contains(t, report, "## Basic")
	assert.Contains(t, report, "## Major")
	assert.Contains(t, report, "## Periodontal")
	assert.Contains(t, report, "Routine Cleaning: 100%")
	assert.Contains(t, report, "Porcelain Crown: 50%")
}

func TestFormatCoverageReport_SectionsMayOverlap(t *testing.T) {
	// Keyword sets are not a partition: a scaling line item belongs to
	// both Basic and Periodontal, and that duplication is intended.
	benefits := []model.Benefit{
		{Name: "Periodontal Scaling", BenefitPercent: "80"},
	}

	report := FormatCoverageReport(benefits, nil)

	assert.Contains(t, report, "## Basic")
	assert.Contains(t, report, "## Periodontal")
	assert.Equal(t, 2, strings.Count(report, "Periodontal Scaling"))
}

func TestFormatCoverageReport_FallbackTable(t *testing.T) {
	// Nothing matches any section keyword, so the flat dump guarantees a
	// non-empty report for a non-empty benefit list.
	benefits := []model.Benefit{
		{Code: "30", Name: "Plan Coverage", BenefitAmount: "0"},
		{Code: "35", Name: "Unclassified Line"},
	}

	report := FormatCoverageReport(benefits, nil)

	assert.Contains(t, report, "## Benefits")
	assert.Contains(t, report, "Plan Coverage [30]")
	assert.Contains(t, report, "Unclassified Line [35]")
	assert.NotContains(t, report, "## Preventive")
}

func TestFormatCoverageReport_FallbackCapped(t *testing.T) {
	var benefits []model.Benefit
	for i := 0; i < 30; i++ {
		benefits = append(benefits, model.Benefit{Name: "Zz Line"})
	}

	report := FormatCoverageReport(benefits, nil)

	assert.Equal(t, fallbackTableLimit, strings.Count(report, "Zz Line"))
}

func TestFormatCoverageReport_AnnualStatusBlock(t *testing.T) {
	rows := []model.VerificationDataRow{
		{SAICode: "VF000060", AICallValue: "$1200", Missing: model.MissingNo},
		{SAICode: "VF000020", AICallValue: "$50", Missing: model.MissingNo},
	}

	report := FormatCoverageReport(nil, rows)

	assert.Contains(t, report, "## Annual Benefit Status")
	assert.Contains(t, report, "- Annual Maximum: $1200")
	assert.Contains(t, report, "- Deductible: $50")
	// Unresolved lines default independently.
	assert.Contains(t, report, "- Plan Status: Not Found")
	assert.Contains(t, report, "- Member ID: Not Found")
}

func TestFormatCoverageReport_NeverEmpty(t *testing.T) {
	assert.NotEmpty(t, FormatCoverageReport(nil, nil))
}

func TestFormatCoverageReport_UnresolvedRowNotReported(t *testing.T) {
	// A row still marked missing must not leak a stale value into the
	// annual status block.
	rows := []model.VerificationDataRow{
		{SAICode: "VF000060", AICallValue: "$900", Missing: model.MissingYes},
	}

	report := FormatCoverageReport(nil, rows)

	assert.Contains(t, report, "- Annual Maximum: Not Found")
}

func TestBenefitLine(t *testing.T) {
	line := benefitLine(model.Benefit{
		Code:              "C",
		Name:              "Deductible",
		BenefitAmount:     "50",
		CoverageLevelCode: "individual",
	})
	assert.Equal(t, "- Deductible [C]: $50 (IND)", line)

	assert.Equal(t, "- (unnamed benefit)", benefitLine(model.Benefit{}))
}
