// internal/models/lead.go
package models

import "time"

// LeadStatus is the pipeline stage a lead currently sits in.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusProposal    LeadStatus = "proposal"
	LeadStatusNegotiation LeadStatus = "negotiation"
	LeadStatusWon         LeadStatus = "won"
	LeadStatusLost        LeadStatus = "lost"
)

// Lead is a prospect record as read from the CRM. The generation layer
// treats it as read-only input.
type Lead struct {
	ID               string     `json:"id"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Company          string     `json:"company"`
	Title            string     `json:"title,omitempty"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Industry         string     `json:"industry,omitempty"`
	Location         string     `json:"location,omitempty"`
	Website          string     `json:"website,omitempty"`
	LinkedIn         string     `json:"linkedin,omitempty"`
	Status           LeadStatus `json:"status"`
	Score            int        `json:"score"`
	Value            float64    `json:"value"`
	Notes            string     `json:"notes,omitempty"`
	KnowledgeExcerpt string     `json:"knowledgeExcerpt,omitempty"`
	LastContactedAt  *time.Time `json:"lastContactedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// FullName joins first and last name, skipping blanks.
func (l Lead) FullName() string {
	switch {
	case l.FirstName == "":
		return l.LastName
	case l.LastName == "":
		return l.FirstName
	default:
		return l.FirstName + " " + l.LastName
	}
}

// Temperature buckets the lead score the way the pipeline board does.
func (l Lead) Temperature() string {
	switch {
	case l.Score >= 70:
		return "hot"
	case l.Score >= 40:
		return "warm"
	default:
		return "cold"
	}
}

// IsClosed reports whether the lead has left the active pipeline.
func (l Lead) IsClosed() bool {
	return l.Status == LeadStatusWon || l.Status == LeadStatusLost
}
