package models

// BusinessProfile describes the seller's own company. It is optional context
// for most generation operations.
type BusinessProfile struct {
	CompanyName     string   `json:"companyName"`
	Industry        string   `json:"industry,omitempty"`
	Description     string   `json:"description,omitempty"`
	ValueProp       string   `json:"valueProposition,omitempty"`
	TargetAudience  string   `json:"targetAudience,omitempty"`
	Products        []string `json:"products,omitempty"`
	Differentiators []string `json:"differentiators,omitempty"`
	Website         string   `json:"website,omitempty"`
	Tone            string   `json:"tone,omitempty"`
}

// IsZero reports whether the profile carries nothing worth adding to a prompt.
func (b *BusinessProfile) IsZero() bool {
	if b == nil {
		return true
	}
	return b.CompanyName == "" && b.Industry == "" && b.Description == "" &&
		b.ValueProp == "" && b.TargetAudience == "" &&
		len(b.Products) == 0 && len(b.Differentiators) == 0
}
