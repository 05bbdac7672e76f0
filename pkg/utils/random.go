package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// DatedNumber builds a human-readable document number such as
// S20250101-9F3A11C0: prefix, UTC date, dash, 8 upper-case hex digits.
func DatedNumber(prefix string, at time.Time) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + at.UTC().Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(b)), nil
}
