package model

import "time"

// Patient is the subject of a verification pipeline. Demographics and
// PHI handling live in the surrounding application; this core only needs
// identity and insurance routing data.
type Patient struct {
	ID        string    `json:"id"`
	PMSRef    string    `json:"pms_ref,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Carrier   string    `json:"carrier,omitempty"`
	MemberID  string    `json:"member_id,omitempty"`
	GroupNum  string    `json:"group_number,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName renders "Last, First" the way the PMS lists patients.
func (p Patient) DisplayName() string {
	switch {
	case p.LastName == "":
		return p.FirstName
	case p.FirstName == "":
		return p.LastName
	default:
		return p.LastName + ", " + p.FirstName
	}
}
