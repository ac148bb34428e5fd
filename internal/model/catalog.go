package model

// CatalogRegistry is an indexed view over the verification catalog
// template. The backing slice is the shared template; callers must Clone
// before mutating per-pass fields.
type CatalogRegistry struct {
	Rows       []VerificationDataRow
	bySAI      map[string]*VerificationDataRow
	byCategory map[string][]*VerificationDataRow
}

// NewCatalogRegistry builds indexed lookups over the given rows.
func NewCatalogRegistry(rows []VerificationDataRow) *CatalogRegistry {
	r := &CatalogRegistry{
		Rows:       rows,
		bySAI:      make(map[string]*VerificationDataRow, len(rows)),
		byCategory: make(map[string][]*VerificationDataRow),
	}
	for i := range r.Rows {
		row := &r.Rows[i]
		r.bySAI[row.SAICode] = row
		r.byCategory[row.Category] = append(r.byCategory[row.Category], row)
	}
	return r
}

// BySAI returns the template row for the given SAI code, or nil.
func (r *CatalogRegistry) BySAI(code string) *VerificationDataRow {
	return r.bySAI[code]
}

// ByCategory returns the template rows in the given category.
func (r *CatalogRegistry) ByCategory(category string) []*VerificationDataRow {
	return r.byCategory[category]
}

// Clone deep-copies the catalog rows so one normalization pass can
// overwrite AICallValue/Missing/VerifiedBy without touching the template.
func (r *CatalogRegistry) Clone() []VerificationDataRow {
	return CloneRows(r.Rows)
}

// CloneRows deep-copies a row slice, including the slice-typed matching hints.
func CloneRows(rows []VerificationDataRow) []VerificationDataRow {
	out := make([]VerificationDataRow, len(rows))
	copy(out, rows)
	for i := range out {
		if len(rows[i].MatchCodes) > 0 {
			out[i].MatchCodes = append([]string(nil), rows[i].MatchCodes...)
		}
		if len(rows[i].Keywords) > 0 {
			out[i].Keywords = append([]string(nil), rows[i].Keywords...)
		}
	}
	return out
}
