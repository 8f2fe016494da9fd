package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidateTransaction performs strict checks on the transaction.
// now: reference time (injectable for tests)
// skew: allowable future skew (positive duration)
func ValidateTransaction(tx *Transaction, now time.Time, skew time.Duration) []FieldError {
	var errs []FieldError

	errs = appendRequiredID(errs, "organization_id", tx.OrganizationID)
	errs = appendRequiredID(errs, "donor_id", tx.DonorID)
	if tx.TransactionID != "" && len(tx.TransactionID) > MaxIDLen {
		errs = append(errs, FieldError{"transaction_id", fmt.Sprintf("max length %d", MaxIDLen)})
	}

	switch {
	case math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0):
		errs = append(errs, FieldError{"amount", "must be a finite number"})
	case tx.Amount <= 0:
		errs = append(errs, FieldError{"amount", "must be positive"})
	case math.Round(tx.Amount*100) < 1:
		// stored as NUMERIC(14,2); anything that rounds to 0.00 fails the CHECK
		errs = append(errs, FieldError{"amount", "must be at least 0.01"})
	case tx.Amount > MaxAmount:
		errs = append(errs, FieldError{"amount", fmt.Sprintf("max %d", MaxAmount)})
	}

	// Timestamp: epoch seconds, not in the future (allow small skew)
	if tx.Timestamp == 0 {
		errs = append(errs, FieldError{"timestamp", "required epoch seconds (UTC)"})
	} else {
		ts := time.Unix(tx.Timestamp, 0).UTC()
		if ts.After(now.Add(skew)) {
			errs = append(errs, FieldError{"timestamp", "must not be in the future (beyond allowed skew)"})
		}
	}

	signals := []struct {
		field, value string
	}{
		{"click_id", tx.ClickID},
		{"fbclid", tx.FBClid},
		{"attribution_method", tx.AttributionMethod},
		{"attributed_campaign_id", tx.AttributedCampaignID},
		{"attributed_ad_id", tx.AttributedAdID},
		{"attributed_creative_id", tx.AttributedCreativeID},
		{"source_campaign", tx.SourceCampaign},
		{"contribution_form", tx.ContributionForm},
		{"refcode", tx.Refcode},
	}
	for _, s := range signals {
		if len(s.value) > MaxSignalLen {
			errs = append(errs, FieldError{s.field, fmt.Sprintf("max length %d", MaxSignalLen)})
		}
	}

	return errs
}

func appendRequiredID(errs []FieldError, field, v string) []FieldError {
	switch {
	case v == "":
		return append(errs, FieldError{field, "required"})
	case len(v) > MaxIDLen:
		return append(errs, FieldError{field, fmt.Sprintf("max length %d", MaxIDLen)})
	}
	return errs
}

// ValidateBulk enforces top-level bulk constraints (count caps) and per-item validation.
// maxItems: cap for number of transactions (e.g., 100).
func ValidateBulk(txs []*Transaction, maxItems int, now time.Time, skew time.Duration) (allErrs [][]FieldError, topErr error) {
	if len(txs) == 0 {
		return nil, errors.New("transactions: required and must contain at least one item")
	}
	if len(txs) > maxItems {
		return nil, fmt.Errorf("transactions: max %d items", maxItems)
	}
	allErrs = make([][]FieldError, len(txs))
	var any bool
	for i := range txs {
		fe := ValidateTransaction(txs[i], now, skew)
		if len(fe) > 0 {
			allErrs[i] = fe
			any = true
		}
	}
	if any {
		return allErrs, fmt.Errorf("one or more transactions failed validation")
	}
	return nil, nil
}
