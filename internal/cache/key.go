// Package cache memoizes classification results. Because the engine is a
// pure function of the normalized record and the rule version, a result can
// be reused for any identical record.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/pcos-screening-server/internal/domain"
)

const keyPrefix = "pcos:result:"

// Key derives the cache key of rec under ruleVersion. Unknown fields encode
// as null, so an unreported answer never collides with a reported false.
func Key(rec domain.SymptomRecord, ruleVersion string) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode record for cache key: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(ruleVersion))
	h.Write([]byte{0})
	h.Write(payload)
	return keyPrefix + ruleVersion + ":" + hex.EncodeToString(h.Sum(nil)), nil
}
