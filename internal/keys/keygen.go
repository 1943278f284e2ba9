package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	keyPrefix  = "sk-helicone-"
	groupCount = 4
	groupSize  = 7
)

// Generate returns a new key like sk-helicone-abcdefg-hijklmn-opqrstu-vwxyz23.
func Generate() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	enc := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b))
	groups := make([]string, 0, groupCount)
	for i := 0; i < groupCount; i++ {
		groups = append(groups, enc[i*groupSize:(i+1)*groupSize])
	}
	return keyPrefix + strings.Join(groups, "-"), nil
}

// Hash returns the stored form of a key: hex sha256 of its Authorization header value.
func Hash(key string) string {
	sum := sha256.Sum256([]byte("Bearer " + key))
	return hex.EncodeToString(sum[:])
}
