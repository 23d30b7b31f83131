package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"capital-allocator/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(signal_id|symbol|action|trade_date)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	signalID string,
	symbol string,
	action domain.Action,
	tradeDate time.Time,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		signalID,
		symbol,
		string(action),
		domain.Day(tradeDate).Format(time.DateOnly),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
