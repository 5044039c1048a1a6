package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CanonicalString joins every field except signature as sorted k=v pairs
// separated by &.
func CanonicalString(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+stringify(fields[k]))
	}
	return strings.Join(pairs, "&")
}

// Sign returns the hex HMAC-SHA256 of the canonical string.
func Sign(secret string, fields map[string]any) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(CanonicalString(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks fields["signature"] in constant time.
func VerifySignature(secret string, fields map[string]any) bool {
	sig, _ := fields["signature"].(string)
	if sig == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(Sign(secret, fields)))
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
