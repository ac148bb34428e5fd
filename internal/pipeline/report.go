package pipeline

import (
	"fmt"
	"strings"

	"github.com/novadental/verify-cli/internal/model"
)

// fallbackTableLimit caps the flat benefit dump used when no section
// keyword matched anything.
const fallbackTableLimit = 20

// reportSections groups procedure-like benefits by keyword membership.
// The sets are deliberately not mutually exclusive: a periodontal
// scaling line legitimately shows under both Basic and Periodontal. The
// report is descriptive, not a partition.
var reportSections = []struct {
	Title    string
	Keywords []string
}{
	{"Preventive", []string{"preventive", "preventative", "prophylaxis", "cleaning", "exam", "fluoride", "sealant", "bitewing", "x-ray"}},
	{"Basic", []string{"basic", "filling", "restorative", "extraction", "root canal", "endodontic", "scaling"}},
	{"Major", []string{"major", "crown", "denture", "bridge", "implant", "prosthodontic", "orthodontic"}},
	{"Periodontal", []string{"periodontal", "periodontics", "perio", "scaling", "gingiv"}},
}

// FormatCoverageReport renders the human-readable coverage analysis the
// front desk reads back to patients. Sections come first, then the
// annual benefit status block. When no section matched anything the
// first benefits are dumped as a flat table so the report is never empty
// for a non-empty benefit list.
func FormatCoverageReport(benefits []model.Benefit, rows []model.VerificationDataRow) string {
	var b strings.Builder

	b.WriteString("# Coverage Analysis\n\n")

	sectioned := false
	for _, sec := range reportSections {
		var lines []string
		for _, ben := range benefits {
			if benefitInSection(ben, sec.Keywords) {
				lines = append(lines, benefitLine(ben))
			}
		}
		if len(lines) == 0 {
			continue
		}
		sectioned = true
		fmt.Fprintf(&b, "## %s\n", sec.Title)
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if !sectioned && len(benefits) > 0 {
		b.WriteString("## Benefits\n")
		n := len(benefits)
		if n > fallbackTableLimit {
			n = fallbackTableLimit
		}
		for _, ben := range benefits[:n] {
			b.WriteString(benefitLine(ben))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString("## Annual Benefit Status\n")
	fmt.Fprintf(&b, "- Annual Maximum: %s\n", rowValueOr(rows, "VF000060", NotFound))
	fmt.Fprintf(&b, "- Deductible: %s\n", rowValueOr(rows, "VF000020", NotFound))
	fmt.Fprintf(&b, "- Plan Status: %s\n", rowValueOr(rows, "VF000010", NotFound))
	fmt.Fprintf(&b, "- Member ID: %s\n", rowValueOr(rows, "VF000012", NotFound))

	return b.String()
}

func benefitInSection(b model.Benefit, keywords []string) bool {
	hay := strings.ToLower(b.Name + " " + strings.Join(b.ServiceTypes, " "))
	if strings.TrimSpace(hay) == "" {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(hay, kw) {
			return true
		}
	}
	return false
}

func benefitLine(b model.Benefit) string {
	name := b.Name
	if name == "" {
		name = "(unnamed benefit)"
	}
	line := "- " + name
	if b.Code != "" {
		line += fmt.Sprintf(" [%s]", b.Code)
	}
	if v := benefitValue(b); v != "" {
		line += ": " + v
	}
	if lvl := normalizeCoverageLevel(b.CoverageLevelCode); b.CoverageLevelCode != "" {
		line += fmt.Sprintf(" (%s)", lvl)
	}
	return line
}

// rowValueOr returns the normalized value for a SAI code, falling back
// to the sentinel when the pass did not resolve it. Each annual-status
// line defaults independently.
func rowValueOr(rows []model.VerificationDataRow, saiCode, fallback string) string {
	for _, row := range rows {
		if row.SAICode == saiCode && row.Missing == model.MissingNo && row.AICallValue != "" {
			return row.AICallValue
		}
	}
	return fallback
}
