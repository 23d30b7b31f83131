package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"capital-allocator/internal/domain"
)

// ComputeSignalID computes a deterministic signal id using SHA256.
// Formula: SHA256("signal"|trade_date)
// Returns hex-encoded hash (64 characters).
func ComputeSignalID(tradeDate time.Time) string {
	data := fmt.Sprintf("signal|%s", domain.Day(tradeDate).Format(time.DateOnly))

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeContentHash hashes the decision content of a signal: everything
// except ID, ContentHash and GeneratedAt. Map keys are encoded in sorted order
// so equal signals hash equally.
func ComputeContentHash(s *domain.DailySignal) (string, error) {
	c := *s
	c.ID = ""
	c.ContentHash = ""
	c.GeneratedAt = time.Time{}

	data, err := json.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("marshal signal content: %w", err)
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
