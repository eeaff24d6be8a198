package state

import "strings"

// IdentityFields are the caller-supplied fields the gate verifies.
type IdentityFields struct {
	Name     string `json:"name,omitempty" mapstructure:"name"`
	DOB      string `json:"dob,omitempty" mapstructure:"dob"`
	SSNLast4 string `json:"ssn_last4,omitempty" mapstructure:"ssn_last4"`
	Phone    string `json:"phone,omitempty" mapstructure:"phone"`
}

const (
	LabelFullName    = "Full Name"
	LabelDateOfBirth = "Date of Birth"
	LabelSSNOrPhone  = "Last 4 digits of SSN or Phone Number"
)

// Merge keeps existing values where update is empty.
func (f IdentityFields) Merge(update IdentityFields) IdentityFields {
	out := f
	if v := strings.TrimSpace(update.Name); v != "" {
		out.Name = v
	}
	if v := strings.TrimSpace(update.DOB); v != "" {
		out.DOB = v
	}
	if v := strings.TrimSpace(update.SSNLast4); v != "" {
		out.SSNLast4 = v
	}
	if v := strings.TrimSpace(update.Phone); v != "" {
		out.Phone = v
	}
	return out
}

// Missing lists labels for every absent field, in prompt order.
func (f IdentityFields) Missing() []string {
	var missing []string
	if strings.TrimSpace(f.Name) == "" {
		missing = append(missing, LabelFullName)
	}
	if strings.TrimSpace(f.DOB) == "" {
		missing = append(missing, LabelDateOfBirth)
	}
	if strings.TrimSpace(f.SSNLast4) == "" && strings.TrimSpace(f.Phone) == "" {
		missing = append(missing, LabelSSNOrPhone)
	}
	return missing
}

func (f IdentityFields) Complete() bool {
	return len(f.Missing()) == 0
}
