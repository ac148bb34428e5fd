package pipeline

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/novadental/verify-cli/internal/model"
)

// maxFuzzyDistance bounds the levenshtein fallback so "sealant" cannot
// drift into "implant".
const maxFuzzyDistance = 2

// matcher is one predicate tier for resolving a catalog row against the
// benefit list. Tiers run in order; within a tier, benefits are scanned
// in list order and the first hit wins.
type matcher struct {
	name  string
	match func(row model.VerificationDataRow, b model.Benefit) bool
}

var matchers = []matcher{
	{name: "code", match: matchCode},
	{name: "name", match: matchName},
	{name: "service_types", match: matchServiceTypes},
	{name: "fuzzy_name", match: matchFuzzyName},
}

// MatchBenefit resolves a catalog row to the first benefit that
// satisfies the highest-precedence predicate, honoring the row's
// individual/family coverage level. ok is false when nothing matched.
func MatchBenefit(row model.VerificationDataRow, benefits []model.Benefit) (model.Benefit, bool) {
	for _, m := range matchers {
		for _, b := range benefits {
			if !coverageLevelCompatible(row, b) {
				continue
			}
			if m.match(row, b) {
				return b, true
			}
		}
	}
	return model.Benefit{}, false
}

func matchCode(row model.VerificationDataRow, b model.Benefit) bool {
	if b.Code == "" {
		return false
	}
	for _, code := range row.MatchCodes {
		if strings.EqualFold(b.Code, code) {
			return true
		}
	}
	return false
}

func matchName(row model.VerificationDataRow, b model.Benefit) bool {
	name := strings.ToLower(b.Name)
	if name == "" {
		return false
	}
	for _, kw := range row.Keywords {
		if strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func matchServiceTypes(row model.VerificationDataRow, b model.Benefit) bool {
	types := append(append([]string(nil), b.ServiceTypes...), b.ServiceTypeCodes...)
	for _, st := range types {
		st = strings.ToLower(st)
		for _, kw := range row.Keywords {
			if strings.Contains(st, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

// matchFuzzyName catches carrier misspellings ("perodontal", "prophlaxis")
// that the substring tiers miss.
func matchFuzzyName(row model.VerificationDataRow, b model.Benefit) bool {
	name := strings.ToLower(strings.TrimSpace(b.Name))
	if len(name) < 5 {
		return false
	}
	for _, kw := range row.Keywords {
		kw = strings.ToLower(kw)
		if len(kw) < 5 {
			continue
		}
		if levenshtein.ComputeDistance(name, kw) <= maxFuzzyDistance {
			return true
		}
	}
	return false
}

// coverageLevelCompatible rejects a benefit whose coverage level
// contradicts the row's. A benefit that does not declare a level is
// accepted everywhere; many carriers omit it on plan-wide line items.
func coverageLevelCompatible(row model.VerificationDataRow, b model.Benefit) bool {
	if row.CoverageLevel == "" || b.CoverageLevelCode == "" {
		return true
	}
	return normalizeCoverageLevel(b.CoverageLevelCode) == row.CoverageLevel
}

func normalizeCoverageLevel(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "IND", "INDIVIDUAL", "EMP", "EMPLOYEE":
		return model.CoverageLevelIndividual
	case "FAM", "FAMILY":
		return model.CoverageLevelFamily
	default:
		return strings.ToUpper(strings.TrimSpace(code))
	}
}
