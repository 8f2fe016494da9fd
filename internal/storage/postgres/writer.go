package postgres

import (
	"context"
	"fmt"
	"strings"

	"example.com/attribution/internal/domain"
)

var insertColumns = []string{
	"idempotency_key", "transaction_id", "organization_id", "donor_id", "amount", "ts_epoch",
	"click_id", "fbclid", "attribution_method", "attributed_campaign_id", "attributed_ad_id",
	"attributed_creative_id", "source_campaign", "contribution_form", "refcode",
	"channel", "confidence_score", "confidence_level", "matched_rule", "attribution_tier",
}

type Writer struct {
	db *DB
}

func NewWriter(db *DB) *Writer { return &Writer{db: db} }

// InsertBatch inserts transactions with ON CONFLICT DO NOTHING to enforce idempotency.
func (w *Writer) InsertBatch(ctx context.Context, items []domain.ClassifiedTransaction) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	sql, args := buildInsert(items)
	ct, err := w.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert transactions: %w", err)
	}
	return ct.RowsAffected(), nil
}

func buildInsert(items []domain.ClassifiedTransaction) (string, []any) {
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*len(insertColumns))

	argi := 1
	for _, it := range items {
		tx, res := it.Transaction, it.Attribution
		row := []any{
			it.Key, nullable(tx.TransactionID), tx.OrganizationID, tx.DonorID, tx.Amount, tx.Timestamp,
			nullable(tx.ClickID), nullable(tx.FBClid), nullable(tx.AttributionMethod),
			nullable(tx.AttributedCampaignID), nullable(tx.AttributedAdID), nullable(tx.AttributedCreativeID),
			nullable(tx.SourceCampaign), nullable(tx.ContributionForm), nullable(tx.Refcode),
			string(res.Channel), res.ConfidenceScore, string(res.ConfidenceLevel), res.AttributionMethod, res.AttributionTier,
		}
		ph := make([]string, len(row))
		for i := range row {
			ph[i] = fmt.Sprintf("$%d", argi)
			argi++
		}
		args = append(args, row...)
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
	}

	sql := "INSERT INTO transactions (" + strings.Join(insertColumns, ",") + ") VALUES " +
		strings.Join(placeholders, ",") +
		" ON CONFLICT DO NOTHING"
	return sql, args
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
