// internal/models/pipeline.go
package models

// PipelineStats is the aggregate snapshot of an account's leads. It feeds
// both prompts and the local fallback answers.
type PipelineStats struct {
	TotalLeads       int                `json:"totalLeads"`
	ActiveLeads      int                `json:"activeLeads"`
	HotLeads         int                `json:"hotLeads"`
	WarmLeads        int                `json:"warmLeads"`
	ColdLeads        int                `json:"coldLeads"`
	StaleLeads       int                `json:"staleLeads"`
	NewThisWeek      int                `json:"newThisWeek"`
	WonLeads         int                `json:"wonLeads"`
	LostLeads        int                `json:"lostLeads"`
	AverageScore     float64            `json:"averageScore"`
	ConversionRate   float64            `json:"conversionRate"`
	PipelineValue    float64            `json:"pipelineValue"`
	WonValue         float64            `json:"wonValue"`
	LeadsByStatus    map[LeadStatus]int `json:"leadsByStatus"`
	TopLeads         []string           `json:"topLeads,omitempty"`
	StaleLeadNames   []string           `json:"staleLeadNames,omitempty"`
	BestContactHour  int                `json:"bestContactHour"`
	BestContactDay   string             `json:"bestContactDay,omitempty"`
	ContactedSamples int                `json:"contactedSamples"`
}
