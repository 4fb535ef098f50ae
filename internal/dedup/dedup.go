// Package dedup derives stable content-addressed keys used to detect
// previously imported items across runs and processes.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

// KeyLength is the number of hex characters kept from the digest.
const KeyLength = 16

var fold = cases.Fold()

// PerformerKey derives the dedup key for a performer name. Names differing
// only in case or surrounding whitespace map to the same key.
func PerformerKey(name string) string {
	normalized := fold.String(strings.TrimSpace(name))
	return digest("performer:" + normalized)
}

// ContentKey derives the dedup key for an item title under a performer.
func ContentKey(title, performerKey string) string {
	return digest("content:" + title + ":" + performerKey)
}

// Index answers existence queries for previously stored keys.
type Index interface {
	DedupKeyExists(ctx context.Context, key string) (bool, error)
}

// Exists reports whether the key is already present in the index.
func Exists(ctx context.Context, index Index, key string) (bool, error) {
	return index.DedupKeyExists(ctx, key)
}

func digest(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:KeyLength]
}
