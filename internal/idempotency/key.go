package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"example.com/attribution/internal/domain"
)

type KeySource string

const (
	KeyFromTransactionID KeySource = "transaction_id"
	KeyFromComposite     KeySource = "composite"
)

// DeriveKey returns a stable idempotency key and the source used.
// - Prefer explicit TransactionID when provided (scoped to the organization).
// - Fallback to composite (organization_id, donor_id, amount in cents, timestamp).
// The composite is hex-encoded SHA-256 so every key has a fixed length.
func DeriveKey(tx *domain.Transaction) (key string, src KeySource) {
	if tx.TransactionID != "" {
		return tx.OrganizationID + ":" + tx.TransactionID, KeyFromTransactionID
	}
	composite := fmt.Sprintf("%s|%s|%.2f|%d", tx.OrganizationID, tx.DonorID, tx.Amount, tx.Timestamp)
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:]), KeyFromComposite
}
