package domain

import (
	"time"

	"example.com/attribution/internal/attribution"
)

// Transaction is one donation as received from the payment processor export.
// Timestamp is epoch seconds (UTC).
type Transaction struct {
	TransactionID  string  `json:"transaction_id,omitempty"`
	OrganizationID string  `json:"organization_id"`
	DonorID        string  `json:"donor_id"`
	Amount         float64 `json:"amount"`
	Timestamp      int64   `json:"timestamp"`

	ClickID              string `json:"click_id,omitempty"`
	FBClid               string `json:"fbclid,omitempty"`
	AttributionMethod    string `json:"attribution_method,omitempty"`
	AttributedCampaignID string `json:"attributed_campaign_id,omitempty"`
	AttributedAdID       string `json:"attributed_ad_id,omitempty"`
	AttributedCreativeID string `json:"attributed_creative_id,omitempty"`
	SourceCampaign       string `json:"source_campaign,omitempty"`
	ContributionForm     string `json:"contribution_form,omitempty"`
	Refcode              string `json:"refcode,omitempty"`
}

// AttributionInput projects the attribution signals of tx.
func (tx Transaction) AttributionInput() attribution.Input {
	return attribution.Input{
		ClickID:              tx.ClickID,
		FBClid:               tx.FBClid,
		AttributionMethod:    tx.AttributionMethod,
		AttributedCampaignID: tx.AttributedCampaignID,
		AttributedAdID:       tx.AttributedAdID,
		AttributedCreativeID: tx.AttributedCreativeID,
		SourceCampaign:       tx.SourceCampaign,
		ContributionForm:     tx.ContributionForm,
		Refcode:              tx.Refcode,
	}
}

// ClassifiedTransaction is a transaction ready to persist.
type ClassifiedTransaction struct {
	Transaction
	Key         string
	Attribution attribution.Result
}

// Validation constraints (keep in sync with migrations/0001_init.sql)
const (
	MaxIDLen         = 128
	MaxSignalLen     = 256
	MaxAmount        = 1_000_000_000
	MaxBulkItems     = 100
	DefaultClockSkew = 5 * time.Minute
)
