// internal/common/zoho/crm.go
package zoho

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	commonhttp "crm-ai-workers/internal/common/http"
	"crm-ai-workers/internal/models"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

var ErrLeadNotFound = errors.New("lead not found")

type CRMClient struct {
	oauthToken string
	baseURL    string
	httpClient *commonhttp.Client
}

// zohoLead is the subset of the Leads module the generation prompts use.
type zohoLead struct {
	ID               string   `json:"id"`
	FirstName        string   `json:"First_Name"`
	LastName         string   `json:"Last_Name"`
	Company          string   `json:"Company"`
	Designation      string   `json:"Designation"`
	Email            string   `json:"Email"`
	Phone            string   `json:"Phone"`
	Industry         string   `json:"Industry"`
	City             string   `json:"City"`
	Country          string   `json:"Country"`
	Website          string   `json:"Website"`
	LinkedIn         string   `json:"LinkedIn_URL"`
	LeadStatus       string   `json:"Lead_Status"`
	Score            *int     `json:"Score"`
	AnnualRevenue    *float64 `json:"Annual_Revenue"`
	Description      string   `json:"Description"`
	KnowledgeExcerpt string   `json:"AI_Research_Summary"`
	LastActivityTime string   `json:"Last_Activity_Time"`
	CreatedTime      string   `json:"Created_Time"`
}

func NewCRMClient(baseURL, oauthToken string, timeout time.Duration) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: commonhttp.NewClient(timeout),
	}
}

// GetLead fetches one record from the Leads module. A 204 or empty data
// array is reported as ErrLeadNotFound.
func (c *CRMClient) GetLead(ctx context.Context, leadID string) (*models.Lead, error) {
	if leadID == "" {
		return nil, ErrLeadNotFound
	}
	endpoint := fmt.Sprintf("%s/Leads/%s", c.baseURL, url.PathEscape(leadID))

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrLeadNotFound, leadID)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("failed to get lead (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []zohoLead `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrLeadNotFound, leadID)
	}

	lead := result.Data[0].toLead()
	return &lead, nil
}

func (z zohoLead) toLead() models.Lead {
	lead := models.Lead{
		ID:               z.ID,
		FirstName:        z.FirstName,
		LastName:         z.LastName,
		Company:          z.Company,
		Title:            z.Designation,
		Email:            z.Email,
		Phone:            z.Phone,
		Industry:         z.Industry,
		Location:         joinNonEmpty(", ", z.City, z.Country),
		Website:          z.Website,
		LinkedIn:         z.LinkedIn,
		Status:           mapStatus(z.LeadStatus),
		Notes:            z.Description,
		KnowledgeExcerpt: z.KnowledgeExcerpt,
	}
	if z.Score != nil {
		lead.Score = *z.Score
	}
	if z.AnnualRevenue != nil {
		lead.Value = *z.AnnualRevenue
	}
	if t, ok := parseTime(z.LastActivityTime); ok {
		lead.LastContactedAt = &t
	}
	if t, ok := parseTime(z.CreatedTime); ok {
		lead.CreatedAt = t
	}
	return lead
}

func mapStatus(s string) models.LeadStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contacted", "attempted to contact", "contact in future":
		return models.LeadStatusContacted
	case "pre-qualified", "qualified":
		return models.LeadStatusQualified
	case "proposal":
		return models.LeadStatusProposal
	case "negotiation":
		return models.LeadStatusNegotiation
	case "converted", "won":
		return models.LeadStatusWon
	case "lost lead", "junk lead", "not qualified", "lost":
		return models.LeadStatusLost
	default:
		return models.LeadStatusNew
	}
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
