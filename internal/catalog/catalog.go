// Package catalog loads and validates the verification catalog template:
// the fixed, versioned list of benefit fields every eligibility pass
// tries to resolve for a patient.
package catalog

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/novadental/verify-cli/internal/model"
)

//go:embed template.yaml
var defaultTemplate []byte

// LoadDefault parses the embedded catalog template and returns an
// indexed registry over it.
func LoadDefault() (*model.CatalogRegistry, error) {
	return parse(defaultTemplate)
}

// LoadFromFile reads a catalog template override from the given YAML
// path. Practices with carrier-specific field lists ship their own file.
func LoadFromFile(path string) (*model.CatalogRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read template")
	}
	return parse(data)
}

func parse(data []byte) (*model.CatalogRegistry, error) {
	var rows []model.VerificationDataRow
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrap(err, "catalog: unmarshal template")
	}

	// Template rows start unresolved; seed the per-pass flags so a clone
	// is immediately persistable even when normalization matches nothing.
	for i := range rows {
		if rows[i].Missing == "" {
			rows[i].Missing = model.MissingYes
		}
		if rows[i].VerifiedBy == "" {
			rows[i].VerifiedBy = model.VerifiedByNone
		}
	}

	if err := Validate(rows); err != nil {
		return nil, err
	}
	return model.NewCatalogRegistry(rows), nil
}

var knownCategories = map[string]bool{
	model.CategoryPlanInfo:       true,
	model.CategoryDeductible:     true,
	model.CategoryPreventative:   true,
	model.CategoryBasic:          true,
	model.CategoryMajor:          true,
	model.CategoryAnnualMaximum:  true,
	model.CategoryCoverageLimits: true,
}

// Validate checks template integrity: non-empty, unique SAI codes, known
// categories, and named fields.
func Validate(rows []model.VerificationDataRow) error {
	if len(rows) == 0 {
		return eris.New("catalog: template is empty")
	}

	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.SAICode == "" {
			return eris.Errorf("catalog: row %q has no SAI code", row.FieldName)
		}
		if seen[row.SAICode] {
			return eris.Errorf("catalog: duplicate SAI code %s", row.SAICode)
		}
		seen[row.SAICode] = true

		if row.FieldName == "" {
			return eris.Errorf("catalog: row %s has no field name", row.SAICode)
		}
		if !knownCategories[row.Category] {
			return eris.Errorf("catalog: row %s has unknown category %q", row.SAICode, row.Category)
		}
	}
	return nil
}
