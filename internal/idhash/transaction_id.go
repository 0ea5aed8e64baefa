package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"rotation-lab/internal/domain"
)

// ComputeTransactionID computes a deterministic tx_id using SHA256.
// Formula: SHA256(run_id|instrument_id|date|action|shares)
// Returns hex-encoded hash (64 characters).
func ComputeTransactionID(
	runID string,
	instrumentID string,
	date time.Time,
	action domain.TradeAction,
	shares int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		runID,
		instrumentID,
		domain.DateKey(date),
		string(action),
		shares,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
