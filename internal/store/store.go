// Package store caches per-recording analysis results between batch runs.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Entry is the cached analysis of one recording.
type Entry struct {
	RunID string   `json:"run_id"`
	Date  int64    `json:"date"`
	Lines []string `json:"lines"`
}

// Cache stores entries by recording name under one analysis fingerprint.
type Cache interface {
	Has(ctx context.Context, name string) (bool, error)
	Get(ctx context.Context, name string) (Entry, bool, error)
	Put(ctx context.Context, name string, e Entry) error
	Save(ctx context.Context) error
}

// Fingerprint hashes the format version and analysis settings. A cache
// written under another fingerprint is stale.
func Fingerprint(version string, settings any) (string, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(version))
	h.Write([]byte{0})
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}
