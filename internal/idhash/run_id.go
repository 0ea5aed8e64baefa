package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"rotation-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(strategy|start_date|end_date|initial_cash_cents|instrument_count)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	strategy string,
	startDate, endDate time.Time,
	initialCashCents int64,
	instrumentCount int,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		strategy,
		domain.DateKey(startDate),
		domain.DateKey(endDate),
		initialCashCents,
		instrumentCount,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
